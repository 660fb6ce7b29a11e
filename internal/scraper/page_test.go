package scraper

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gamescoreworker/helpers"
	"gamescoreworker/services/store"
)

const listingNoFetchHTML = `<html><body>
<div class="c-finderProductCard c-finderProductCard-game">
  <a class="c-finderProductCard_container" href="/game/chrono-trigger/">
    <div class="c-finderProductCard_title" data-title="Chrono Trigger">
      <h3 class="c-finderProductCard_titleHeading"><span>1. Chrono Trigger</span></h3>
    </div>
    <div class="c-finderProductCard_meta"><span class="u-text-uppercase">Mar 7, 2025</span></div>
  </a>
</div>
<div class="c-finderProductCard c-finderProductCard-game">
  <div class="c-finderProductCard_title">
    <h3 class="c-finderProductCard_titleHeading"><span>Linkless Game</span></h3>
  </div>
  <div class="c-finderProductCard_meta"><span class="u-text-uppercase">Jan 2, 2024</span></div>
</div>
</body></html>`

func cardsFrom(t *testing.T, html string) *goquery.Selection {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc.Find("div.c-finderProductCard-game")
}

func TestScrapePageSkipsKnownRecords(t *testing.T) {
	st := store.New(filepath.Join(t.TempDir(), "games.csv"))
	st.Load()
	// Unpadded date from a prior run still matches the canonical form
	st.Insert("Chrono Trigger", "3/7/2025")

	cfg := newTestConfig(t)
	metrics := NewMetrics()
	p := NewPageScraper(cfg, NewDetailFetcher(cfg, nil, metrics), metrics)

	results := p.ScrapePage(cardsFrom(t, listingNoFetchHTML), 1, st)
	require.Len(t, results, 2)

	// Known card emits nil: not re-fetched, not re-persisted
	assert.Nil(t, results[0])

	// Linkless card short-circuits to a record with empty rating fields
	rec := results[1]
	require.NotNil(t, rec)
	assert.Equal(t, "Linkless Game", rec.Title)
	assert.Equal(t, []string{"Linkless Game", "01/02/2024", "", ""}, rec.CSVRow())
}

func TestScrapePageTitleFallsBackToHeading(t *testing.T) {
	// No responders registered: the first card's detail fetch fails fast
	// instead of reaching the network, which this test does not care about
	httpmock.ActivateNonDefault(helpers.Client)
	defer httpmock.DeactivateAndReset()

	st := store.New(filepath.Join(t.TempDir(), "games.csv"))
	st.Load()

	cfg := newTestConfig(t)
	metrics := NewMetrics()
	p := NewPageScraper(cfg, NewDetailFetcher(cfg, nil, metrics), metrics)

	results := p.ScrapePage(cardsFrom(t, listingNoFetchHTML), 1, st)
	require.Len(t, results, 2)

	// First card prefers the structured data-title attribute over the
	// numbered heading text
	require.NotNil(t, results[0])
	assert.Equal(t, "Chrono Trigger", results[0].Title)

	// Second card has no data-title and falls back to the heading
	require.NotNil(t, results[1])
	assert.Equal(t, "Linkless Game", results[1].Title)
}

func TestScrapePageCardWithoutDate(t *testing.T) {
	html := `<div class="c-finderProductCard-game">
	  <div class="c-finderProductCard_title" data-title="Dateless Game"></div>
	</div>`

	st := store.New(filepath.Join(t.TempDir(), "games.csv"))
	st.Load()

	cfg := newTestConfig(t)
	metrics := NewMetrics()
	p := NewPageScraper(cfg, NewDetailFetcher(cfg, nil, metrics), metrics)

	results := p.ScrapePage(cardsFrom(t, html), 1, st)
	require.Len(t, results, 1)
	require.NotNil(t, results[0])
	assert.Equal(t, []string{"Dateless Game", "N/A", "", ""}, results[0].CSVRow())
}
