package store

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strings"

	"gamescoreworker/helpers"
	"gamescoreworker/logger"
	apperr "gamescoreworker/pkg/errors"
)

// Header is the fixed column set of the persisted table. Downstream
// consumers of the CSV depend on exactly these columns.
var Header = []string{"Title", "Initial Release Date", "User Rating", "Number of Ratings"}

type recordKey struct {
	title string
	date  string
}

// Store is the CSV-backed record store. It keeps an in-memory index of
// (title, release date) pairs that grows for the lifetime of one run and is
// never reloaded, plus the append path for per-page batches.
type Store struct {
	path string
	seen map[recordKey]struct{}
	log  *logger.Logger
}

// New creates a store over the given CSV path with an empty index
func New(path string) *Store {
	return &Store{
		path: path,
		seen: make(map[recordKey]struct{}),
		log:  logger.ForStore(),
	}
}

// Load reads the persisted table into the index. A missing file means a
// fresh start; a malformed file is logged and the run continues with an
// empty index rather than aborting.
func (s *Store) Load() {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.log.Info().Str("file", s.path).Msg("CSV file not found, starting fresh")
			return
		}
		s.log.Error().Err(err).Str("file", s.path).Msg("Error reading existing CSV file, starting with empty index")
		return
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	// Skip header row
	if _, err := reader.Read(); err != nil {
		if !errors.Is(err, io.EOF) {
			s.log.Error().Err(err).Str("file", s.path).Msg("Error reading existing CSV file, starting with empty index")
		}
		return
	}

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			s.log.Error().Err(err).Str("file", s.path).Msg("Error reading existing CSV file, starting with empty index")
			s.seen = make(map[recordKey]struct{})
			return
		}
		if len(row) < 2 {
			continue
		}
		title := strings.TrimSpace(row[0])
		date := helpers.NormalizeDateForComparison(strings.TrimSpace(row[1]))
		s.seen[recordKey{title: title, date: date}] = struct{}{}
	}

	s.log.Info().
		Int("records", len(s.seen)).
		Str("file", s.path).
		Msg("Loaded existing records")
}

// Contains reports whether a (title, date) pair is already known. The date is
// normalized on both sides before comparison so padded and unpadded forms
// match; the title is compared exactly and the caller must pre-trim it.
func (s *Store) Contains(title, date string) bool {
	key := recordKey{title: title, date: helpers.NormalizeDateForComparison(date)}
	_, ok := s.seen[key]
	return ok
}

// Insert adds a (title, date) pair to the index so later pages in the same
// run skip it.
func (s *Store) Insert(title, date string) {
	key := recordKey{title: title, date: helpers.NormalizeDateForComparison(date)}
	s.seen[key] = struct{}{}
}

// Size returns the number of indexed pairs
func (s *Store) Size() int {
	return len(s.seen)
}

// Append writes a batch of rows to the CSV file, creating it with the header
// row first when it does not exist yet. One flush per call; the driver calls
// this once per completed page so partial progress survives a crash.
func (s *Store) Append(rows [][]string) error {
	_, statErr := os.Stat(s.path)
	fileExists := statErr == nil

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return apperr.NewStoreError("csv", "open "+s.path, err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)

	if !fileExists {
		if err := writer.Write(Header); err != nil {
			return apperr.NewStoreError("csv", "write header", err)
		}
	}

	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return apperr.NewStoreError("csv", "write row", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return apperr.NewStoreError("csv", "flush", err)
	}
	return nil
}
