package scraper

import (
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"gamescoreworker/config"
	"gamescoreworker/helpers"
	"gamescoreworker/logger"
	"gamescoreworker/services/store"
)

// Selectors for the listing page
const (
	gameCardSelector         = "div.c-finderProductCard-game"
	cardTitleSelector        = "div.c-finderProductCard_title"
	cardTitleHeadingSelector = "h3.c-finderProductCard_titleHeading span"
	cardMetaDateSelector     = "div.c-finderProductCard_meta span.u-text-uppercase"
	cardLinkSelector         = "a.c-finderProductCard_container"
)

// PageScraper extracts game records from the cards of one listing page,
// consulting the record store to skip games seen in earlier runs or earlier
// pages of this one.
type PageScraper struct {
	cfg     *config.Config
	detail  *DetailFetcher
	log     *logger.Logger
	metrics *Metrics
}

// NewPageScraper creates a page scraper around a detail fetcher
func NewPageScraper(cfg *config.Config, detail *DetailFetcher, metrics *Metrics) *PageScraper {
	return &PageScraper{
		cfg:     cfg,
		detail:  detail,
		log:     logger.ForScraper(),
		metrics: metrics,
	}
}

// ScrapePage processes the cards of one listing page in document order. The
// returned slice is aligned with the cards; a nil entry marks a card that is
// already known and was neither fetched nor re-persisted.
func (p *PageScraper) ScrapePage(cards *goquery.Selection, pageNumber int, st *store.Store) []*GameRecord {
	total := cards.Length()
	results := make([]*GameRecord, 0, total)
	cards.Each(func(i int, s *goquery.Selection) {
		results = append(results, p.scrapeCard(s, i, total, pageNumber, st))
	})
	return results
}

func (p *PageScraper) scrapeCard(s *goquery.Selection, index, total, pageNumber int, st *store.Store) *GameRecord {
	// Prefer the structured title attribute, fall back to the heading text
	title := "N/A"
	if attr, ok := s.Find(cardTitleSelector).Attr("data-title"); ok && strings.TrimSpace(attr) != "" {
		title = strings.TrimSpace(attr)
	} else if heading := s.Find(cardTitleHeadingSelector).First(); heading.Length() > 0 {
		title = strings.TrimSpace(heading.Text())
	}

	releaseDate := UnknownDate()
	if span := s.Find(cardMetaDateSelector).First(); span.Length() > 0 {
		if canonical := helpers.CanonicalizeDate(span.Text()); canonical != "N/A" {
			releaseDate = KnownDate(canonical)
		}
	}

	dateStr := releaseDate.String()
	if st.Contains(title, dateStr) {
		p.log.Info().
			Int("index", index+1).
			Int("total", total).
			Int("page", pageNumber).
			Str("title", title).
			Str("release_date", dateStr).
			Msg("Skipping, already exists")
		p.metrics.IncRecord("skipped")
		return nil
	}

	href, ok := s.Find(cardLinkSelector).Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		// Without a detail URL the record cannot be enriched; persist it
		// with empty rating fields rather than failing the page.
		p.log.Warn().
			Int("index", index).
			Int("page", pageNumber).
			Str("title", title).
			Msg("Could not find detail page link for card")
		return &GameRecord{Title: title, ReleaseDate: releaseDate, Rating: Unscored(), RatingCount: AbsentCount()}
	}

	detailURL := p.cfg.BaseURL + strings.TrimSpace(href)
	p.log.Info().
		Int("index", index+1).
		Int("total", total).
		Int("page", pageNumber).
		Str("title", title).
		Str("url", detailURL).
		Str("release_date", dateStr).
		Msg("Processing card")

	rating, count, err := p.detail.Fetch(detailURL)
	if err != nil {
		var failure *FetchFailure
		if errors.As(err, &failure) {
			releaseDate = FailedDate(failure.Reason)
		} else {
			releaseDate = FailedDate(ReasonFetchError)
		}
	}

	return &GameRecord{Title: title, ReleaseDate: releaseDate, Rating: rating, RatingCount: count}
}
