package scraper

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"gamescoreworker/config"
	"gamescoreworker/helpers"
	"gamescoreworker/logger"
	"gamescoreworker/services/cache"
)

// Selectors for the detail page
const (
	userScoreSelector    = "div.c-siteReviewScore_user span"
	reviewsTotalSelector = `div[data-testid="user-score-info"] span.c-productScoreInfo_reviewsTotal`

	rateLimitCacheKey = "detail_rate_limited"
)

// FetchFailure reports a detail page that could not be retrieved. The listing
// page is still trusted for title and date; only the detail fields are
// considered missing.
type FetchFailure struct {
	Reason FailReason
	URL    string
	Err    error
}

// Error implements the error interface
func (e *FetchFailure) Error() string {
	return fmt.Sprintf("detail fetch failed (%s): %s: %v", e.Reason, e.URL, e.Err)
}

// Unwrap returns the underlying error
func (e *FetchFailure) Unwrap() error {
	return e.Err
}

// DetailFetcher retrieves and parses a game's detail page for its user score
// and rating count.
type DetailFetcher struct {
	cfg      *config.Config
	cacheSvc cache.CacheService
	log      *logger.Logger
	metrics  *Metrics
}

// NewDetailFetcher creates a detail fetcher. cacheSvc may be nil, which
// disables the rate-limit fence.
func NewDetailFetcher(cfg *config.Config, cacheSvc cache.CacheService, metrics *Metrics) *DetailFetcher {
	return &DetailFetcher{
		cfg:      cfg,
		cacheSvc: cacheSvc,
		log:      logger.ForScraper(),
		metrics:  metrics,
	}
}

// Fetch retrieves the detail page and extracts the rating fields. The
// configured delay is slept before every request. A *FetchFailure error
// carries the reason the caller tags the record with; the zero-value rating
// fields returned alongside it are usable as-is.
func (f *DetailFetcher) Fetch(url string) (Rating, RatingCount, error) {
	time.Sleep(f.cfg.RequestDelay)

	// While a rate-limit block is live, fail fast instead of hammering the
	// site; the record degrades like any other fetch failure.
	if f.cacheSvc != nil {
		if _, err := f.cacheSvc.Get(rateLimitCacheKey); err == nil {
			f.metrics.IncDetailFetch("blocked")
			return Unscored(), AbsentCount(), &FetchFailure{Reason: ReasonFetchError, URL: url, Err: helpers.ErrRateLimited}
		}
	}

	body, err := helpers.FetchWithRandomHeaders(url)
	if err != nil {
		switch {
		case errors.Is(err, helpers.ErrNotFound):
			f.log.Warn().Str("url", url).Msg("Game detail page not found (404)")
			f.metrics.IncDetailFetch("not_found")
			return Unscored(), AbsentCount(), &FetchFailure{Reason: ReasonPage404, URL: url, Err: err}
		case errors.Is(err, helpers.ErrRateLimited):
			if f.cacheSvc != nil {
				f.cacheSvc.Set(rateLimitCacheKey, []byte("1"), f.cfg.RateLimitBlockTime)
			}
			f.log.Warn().Str("url", url).Dur("block_time", f.cfg.RateLimitBlockTime).Msg("Rate limited on detail page, backing off")
			f.metrics.IncDetailFetch("rate_limited")
			return Unscored(), AbsentCount(), &FetchFailure{Reason: ReasonFetchError, URL: url, Err: err}
		default:
			f.log.Error().Err(err).Str("url", url).Msg("Error fetching detail page")
			f.metrics.IncDetailFetch("fetch_error")
			return Unscored(), AbsentCount(), &FetchFailure{Reason: ReasonFetchError, URL: url, Err: err}
		}
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		f.metrics.IncDetailFetch("parse_error")
		return Unscored(), AbsentCount(), &FetchFailure{Reason: ReasonFetchError, URL: url, Err: err}
	}

	rating, count := f.extractFields(doc, url)
	f.metrics.IncDetailFetch("ok")
	return rating, count, nil
}

// extractFields walks the parsed document for the user score and the rating
// count, degrading to unscored/absent wherever the page lacks an element.
func (f *DetailFetcher) extractFields(doc *goquery.Document, url string) (Rating, RatingCount) {
	scoreText := "N/A"
	if span := doc.Find(userScoreSelector).First(); span.Length() > 0 {
		scoreText = strings.TrimSpace(span.Text())
		f.log.Debug().Str("url", url).Str("user_score", scoreText).Msg("Extracted user score")
	}

	countText := "N/A"
	if strings.EqualFold(scoreText, "tbd") {
		// A tbd score structurally has no rating count on this site
		countText = "0"
	} else {
		totalSpan := doc.Find(reviewsTotalSelector).First()
		if totalSpan.Length() == 0 {
			f.log.Warn().Str("url", url).Msg("Could not find number of user ratings")
		} else {
			text := strings.TrimSpace(totalSpan.Text())
			lower := strings.ToLower(text)
			switch {
			case strings.Contains(lower, "based on"):
				countText = helpers.ExtractCount(text)
			case lower == "tbd" || strings.Contains(lower, "no user score"):
				countText = "0"
			default:
				countText = helpers.ExtractCount(text)
			}
			f.log.Debug().Str("url", url).Str("rating_count", countText).Str("from_text", text).Msg("Extracted rating count")
		}
	}

	rating := Unscored()
	lowerScore := strings.ToLower(scoreText)
	if lowerScore != "tbd" && lowerScore != "n/a" {
		if v, err := strconv.ParseFloat(scoreText, 64); err == nil {
			rating = KnownRating(v)
		}
	}

	count := AbsentCount()
	if countText != "" && countText != "0" && countText != "N/A" {
		if n, err := strconv.Atoi(countText); err == nil {
			count = KnownCount(n)
		}
	}

	return rating, count
}
