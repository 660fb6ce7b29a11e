package scraper

import "strconv"

// FailReason tags a record whose detail page could not be fetched
type FailReason string

const (
	// ReasonPage404 marks a detail page that returned 404
	ReasonPage404 FailReason = "Page 404"
	// ReasonFetchError marks any other detail fetch failure
	ReasonFetchError FailReason = "Fetch Error"
)

type dateState int

const (
	dateKnown dateState = iota
	dateUnknown
	dateFetchFailed
)

// ReleaseDate is the release date of a record: a known value, unknown, or
// lost to a failed detail fetch. The persisted form keeps each state as a
// distinct string so the column is never blank and the store stays
// positionally aligned.
type ReleaseDate struct {
	state  dateState
	value  string
	reason FailReason
}

// KnownDate wraps a date string, canonical "MM/DD/YYYY" where the site's
// value parsed, the raw site text where it did not
func KnownDate(value string) ReleaseDate {
	return ReleaseDate{state: dateKnown, value: value}
}

// UnknownDate marks a card that carried no release date
func UnknownDate() ReleaseDate {
	return ReleaseDate{state: dateUnknown}
}

// FailedDate marks a record whose detail fetch failed
func FailedDate(reason FailReason) ReleaseDate {
	return ReleaseDate{state: dateFetchFailed, reason: reason}
}

// String renders the persisted form of the date
func (d ReleaseDate) String() string {
	switch d.state {
	case dateKnown:
		return d.value
	case dateFetchFailed:
		return "N/A (" + string(d.reason) + ")"
	default:
		return "N/A"
	}
}

// Rating is the user score of a record: a known float or unscored. A "tbd"
// score on the site is a legitimate state, not an error.
type Rating struct {
	value float64
	known bool
}

// KnownRating wraps a parsed user score
func KnownRating(value float64) Rating {
	return Rating{value: value, known: true}
}

// Unscored marks a record with no user score yet
func Unscored() Rating {
	return Rating{}
}

// Value returns the score and whether it is known
func (r Rating) Value() (float64, bool) {
	return r.value, r.known
}

// CSV renders the persisted form: the score, or empty when unscored
func (r Rating) CSV() string {
	if !r.known {
		return ""
	}
	return strconv.FormatFloat(r.value, 'f', -1, 64)
}

// RatingCount is the number of user ratings: a known positive count or
// absent. Zero collapses to absent in the persisted form.
type RatingCount struct {
	value int
	known bool
}

// KnownCount wraps a parsed rating count
func KnownCount(value int) RatingCount {
	return RatingCount{value: value, known: true}
}

// AbsentCount marks a record with no usable rating count
func AbsentCount() RatingCount {
	return RatingCount{}
}

// Value returns the count and whether it is known
func (c RatingCount) Value() (int, bool) {
	return c.value, c.known
}

// CSV renders the persisted form: the count, or empty when absent or zero
func (c RatingCount) CSV() string {
	if !c.known || c.value == 0 {
		return ""
	}
	return strconv.Itoa(c.value)
}

// GameRecord is one scraped game. Each record is created exactly once, by
// the detail fetch path or short-circuited by the page scraper when the card
// carries no detail link, and handed to the driver which owns persistence.
type GameRecord struct {
	Title       string
	ReleaseDate ReleaseDate
	Rating      Rating
	RatingCount RatingCount
}

// CSVRow renders the record in the persisted column order
func (g *GameRecord) CSVRow() []string {
	return []string{
		g.Title,
		g.ReleaseDate.String(),
		g.Rating.CSV(),
		g.RatingCount.CSV(),
	}
}
