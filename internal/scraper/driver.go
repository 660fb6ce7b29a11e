package scraper

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"

	"gamescoreworker/config"
	"gamescoreworker/helpers"
	"gamescoreworker/logger"
	apperr "gamescoreworker/pkg/errors"
	"gamescoreworker/services/publisher"
	"gamescoreworker/services/store"
)

// RunState is the terminal state of a pagination run
type RunState int

const (
	// StateFetching is the non-terminal scraping state
	StateFetching RunState = iota
	// StatePageEmpty is the normal end of the catalog
	StatePageEmpty
	// StateFetchError means a listing page could not be fetched; the run
	// stops immediately, there is no retry at this layer
	StateFetchError
)

// String renders the state name
func (s RunState) String() string {
	switch s {
	case StatePageEmpty:
		return "page_empty"
	case StateFetchError:
		return "fetch_error"
	default:
		return "fetching"
	}
}

// RunSummary reports the outcome of one pagination run
type RunSummary struct {
	State          RunState
	PagesProcessed int
	NewRecords     int
	Skipped        int
	Err            error
}

// recordMessage is the wire form of a published record
type recordMessage struct {
	Title       string   `json:"title"`
	ReleaseDate string   `json:"release_date"`
	UserRating  *float64 `json:"user_rating,omitempty"`
	RatingCount *int     `json:"rating_count,omitempty"`
}

// Driver walks listing pages in sequence until an empty page signals the end
// of the catalog, persisting each page's new records as a batch and feeding
// every new record back into the in-memory index so later pages never
// re-fetch it.
type Driver struct {
	cfg     *config.Config
	store   *store.Store
	pages   *PageScraper
	pub     publisher.Publisher
	log     *logger.Logger
	metrics *Metrics
}

// NewDriver creates a pagination driver. pub may be nil, which disables
// publishing.
func NewDriver(cfg *config.Config, st *store.Store, pages *PageScraper, pub publisher.Publisher, metrics *Metrics) *Driver {
	return &Driver{
		cfg:     cfg,
		store:   st,
		pages:   pages,
		pub:     pub,
		log:     logger.ForScraper(),
		metrics: metrics,
	}
}

// Run loads the record store and drives the pagination loop to one of its
// terminal states.
func (d *Driver) Run() RunSummary {
	d.store.Load()

	totalNew := 0
	totalSkipped := 0
	page := d.cfg.StartPage

	for {
		url := fmt.Sprintf(d.cfg.BrowseURLTemplate, page)
		d.log.Info().Int("page", page).Str("url", url).Msg("Fetching listing page")

		body, err := helpers.FetchWithRandomHeaders(url)
		if err != nil {
			wrapped := apperr.NewNetworkError("driver", fmt.Sprintf("fetch listing page %d", page), err)
			d.metrics.IncError(string(apperr.TypeOf(wrapped)))
			d.log.Error().Err(err).Int("page", page).Msg("Error fetching listing page")
			return d.finish(StateFetchError, page, totalNew, totalSkipped, wrapped)
		}
		d.metrics.IncListingPage()

		doc, err := goquery.NewDocumentFromReader(body)
		if err != nil {
			wrapped := apperr.NewParsingError("driver", fmt.Sprintf("parse listing page %d", page), err)
			d.metrics.IncError(string(apperr.TypeOf(wrapped)))
			d.log.Error().Err(err).Int("page", page).Msg("Error parsing listing page")
			return d.finish(StateFetchError, page, totalNew, totalSkipped, wrapped)
		}

		cards := doc.Find(gameCardSelector)
		if cards.Length() == 0 {
			d.log.Info().Int("page", page).Msg("No game cards found, reached the end of available pages")
			return d.finish(StatePageEmpty, page, totalNew, totalSkipped, nil)
		}
		d.log.Info().Int("count", cards.Length()).Int("page", page).Msg("Found game cards")

		results := d.pages.ScrapePage(cards, page, d.store)

		var rows [][]string
		pageNew := 0
		pageSkipped := 0
		for _, rec := range results {
			if rec == nil {
				pageSkipped++
				continue
			}
			// Feed the index before moving on so duplicates later in the
			// run are skipped without a fetch
			d.store.Insert(rec.Title, rec.ReleaseDate.String())
			rows = append(rows, rec.CSVRow())
			pageNew++
			d.metrics.IncRecord("new")
			d.publish(rec)
		}

		if len(rows) > 0 {
			if err := d.store.Append(rows); err != nil {
				d.metrics.IncError(string(apperr.TypeOf(err)))
				d.log.Error().Err(err).Int("page", page).Msg("Error appending records to store")
				return d.finish(StateFetchError, page, totalNew+pageNew, totalSkipped+pageSkipped, err)
			}
			d.log.Info().Int("page", page).Int("added", pageNew).Int("skipped", pageSkipped).Msg("Page complete")
		} else {
			d.log.Info().Int("page", page).Int("skipped", pageSkipped).Msg("Page complete, no new games")
		}

		totalNew += pageNew
		totalSkipped += pageSkipped
		page++

		time.Sleep(d.cfg.RequestDelay)
	}
}

// publish sends a newly scraped record to the stream; failures are logged
// and never fail the run
func (d *Driver) publish(rec *GameRecord) {
	if d.pub == nil {
		return
	}

	msg := recordMessage{
		Title:       rec.Title,
		ReleaseDate: rec.ReleaseDate.String(),
	}
	if v, ok := rec.Rating.Value(); ok {
		msg.UserRating = &v
	}
	if n, ok := rec.RatingCount.Value(); ok {
		msg.RatingCount = &n
	}

	data, err := json.Marshal(msg)
	if err != nil {
		d.log.Error().Err(err).Str("title", rec.Title).Msg("Failed to marshal record")
		return
	}
	if err := d.pub.Publish(data); err != nil {
		d.metrics.IncError(string(apperr.TypeOf(err)))
		d.log.Error().Err(err).Str("title", rec.Title).Msg("Failed to publish record")
	}
}

func (d *Driver) finish(state RunState, page, totalNew, totalSkipped int, err error) RunSummary {
	summary := RunSummary{
		State:          state,
		PagesProcessed: page - d.cfg.StartPage,
		NewRecords:     totalNew,
		Skipped:        totalSkipped,
		Err:            err,
	}
	d.log.Info().
		Str("state", state.String()).
		Int("pages_processed", summary.PagesProcessed).
		Int("new_records", summary.NewRecords).
		Int("skipped", summary.Skipped).
		Msg("Scraping complete")
	return summary
}
