package publisher

// Publisher represents a service for publishing newly scraped records
type Publisher interface {
	// Publish publishes a message to the stream
	Publish(message []byte) error

	// Close closes the publisher connection
	Close() error
}
