package scraper

import (
	"errors"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gamescoreworker/config"
	"gamescoreworker/helpers"
)

const detailScoredHTML = `<html><body>
<div class="c-productHero">
  <div class="c-siteReviewScore_user c-siteReviewScore"><span>8.9</span></div>
</div>
<div data-testid="user-score-info" class="c-productScoreInfo">
  <span class="c-productScoreInfo_reviewsTotal"><a href="#reviews">Based on 1,014 User Ratings</a></span>
</div>
</body></html>`

const detailTbdHTML = `<html><body>
<div class="c-siteReviewScore_user c-siteReviewScore"><span>tbd</span></div>
</body></html>`

const detailNoCountHTML = `<html><body>
<div class="c-siteReviewScore_user c-siteReviewScore"><span>7.5</span></div>
</body></html>`

const detailNoUserScoreHTML = `<html><body>
<div class="c-siteReviewScore_user c-siteReviewScore"><span>6.1</span></div>
<div data-testid="user-score-info">
  <span class="c-productScoreInfo_reviewsTotal">No user score yet</span>
</div>
</body></html>`

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.LoadConfig()
	cfg.RequestDelay = 0
	cfg.RateLimitBlockTime = time.Minute
	return cfg
}

func TestDetailFetcherScoredPage(t *testing.T) {
	httpmock.ActivateNonDefault(helpers.Client)
	defer httpmock.DeactivateAndReset()

	url := "https://example.test/game/chrono-trigger/"
	httpmock.RegisterResponder("GET", url, httpmock.NewStringResponder(200, detailScoredHTML))

	f := NewDetailFetcher(newTestConfig(t), nil, NewMetrics())
	rating, count, err := f.Fetch(url)
	require.NoError(t, err)

	v, known := rating.Value()
	assert.True(t, known)
	assert.Equal(t, 8.9, v)

	n, known := count.Value()
	assert.True(t, known)
	assert.Equal(t, 1014, n)
}

func TestDetailFetcherTbdScore(t *testing.T) {
	httpmock.ActivateNonDefault(helpers.Client)
	defer httpmock.DeactivateAndReset()

	url := "https://example.test/game/fresh-release/"
	httpmock.RegisterResponder("GET", url, httpmock.NewStringResponder(200, detailTbdHTML))

	f := NewDetailFetcher(newTestConfig(t), nil, NewMetrics())
	rating, count, err := f.Fetch(url)
	require.NoError(t, err)

	_, known := rating.Value()
	assert.False(t, known)
	_, known = count.Value()
	assert.False(t, known)
	assert.Equal(t, "", rating.CSV())
	assert.Equal(t, "", count.CSV())
}

func TestDetailFetcherMissingCountElement(t *testing.T) {
	httpmock.ActivateNonDefault(helpers.Client)
	defer httpmock.DeactivateAndReset()

	url := "https://example.test/game/obscure-title/"
	httpmock.RegisterResponder("GET", url, httpmock.NewStringResponder(200, detailNoCountHTML))

	f := NewDetailFetcher(newTestConfig(t), nil, NewMetrics())
	rating, count, err := f.Fetch(url)
	require.NoError(t, err)

	v, known := rating.Value()
	assert.True(t, known)
	assert.Equal(t, 7.5, v)
	_, known = count.Value()
	assert.False(t, known)
}

func TestDetailFetcherNoUserScoreText(t *testing.T) {
	httpmock.ActivateNonDefault(helpers.Client)
	defer httpmock.DeactivateAndReset()

	url := "https://example.test/game/quiet-launch/"
	httpmock.RegisterResponder("GET", url, httpmock.NewStringResponder(200, detailNoUserScoreHTML))

	f := NewDetailFetcher(newTestConfig(t), nil, NewMetrics())
	rating, count, err := f.Fetch(url)
	require.NoError(t, err)

	v, known := rating.Value()
	assert.True(t, known)
	assert.Equal(t, 6.1, v)
	_, known = count.Value()
	assert.False(t, known)
	assert.Equal(t, "", count.CSV())
}

func TestDetailFetcherNotFound(t *testing.T) {
	httpmock.ActivateNonDefault(helpers.Client)
	defer httpmock.DeactivateAndReset()

	url := "https://example.test/game/missing/"
	httpmock.RegisterResponder("GET", url, httpmock.NewStringResponder(404, "not here"))

	f := NewDetailFetcher(newTestConfig(t), nil, NewMetrics())
	_, _, err := f.Fetch(url)
	require.Error(t, err)

	var failure *FetchFailure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, ReasonPage404, failure.Reason)
}

func TestDetailFetcherServerError(t *testing.T) {
	httpmock.ActivateNonDefault(helpers.Client)
	defer httpmock.DeactivateAndReset()

	url := "https://example.test/game/unstable/"
	httpmock.RegisterResponder("GET", url, httpmock.NewStringResponder(500, "boom"))

	f := NewDetailFetcher(newTestConfig(t), nil, NewMetrics())
	_, _, err := f.Fetch(url)
	require.Error(t, err)

	var failure *FetchFailure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, ReasonFetchError, failure.Reason)
}

func TestDetailFetcherRateLimitFence(t *testing.T) {
	httpmock.ActivateNonDefault(helpers.Client)
	defer httpmock.DeactivateAndReset()

	limited := "https://example.test/game/limited/"
	next := "https://example.test/game/next/"
	httpmock.RegisterResponder("GET", limited, httpmock.NewStringResponder(429, "slow down"))
	httpmock.RegisterResponder("GET", next, httpmock.NewStringResponder(200, detailScoredHTML))

	mockCache := NewMockCacheService()
	f := NewDetailFetcher(newTestConfig(t), mockCache, NewMetrics())

	// The 429 sets the block key
	_, _, err := f.Fetch(limited)
	require.Error(t, err)
	_, cacheErr := mockCache.Get(rateLimitCacheKey)
	assert.NoError(t, cacheErr)

	// While the block is live, subsequent fetches fail fast without a request
	_, _, err = f.Fetch(next)
	require.Error(t, err)
	var failure *FetchFailure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, ReasonFetchError, failure.Reason)
	assert.True(t, errors.Is(failure.Err, helpers.ErrRateLimited))

	info := httpmock.GetCallCountInfo()
	assert.Equal(t, 0, info["GET "+next])
}
