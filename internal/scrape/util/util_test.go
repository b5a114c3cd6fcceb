package util

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcherRetriesThrottling(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "techflow-test", r.UserAgent())
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`<html><body><h1>ok</h1></body></html>`))
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client(), NewHostLimiter(100, 1), "techflow-test")
	f.Backoff = time.Millisecond

	doc, err := f.Document(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", doc.Find("h1").Text())
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestFetcherHonoursRetryAfter(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`ok`))
	}))
	defer srv.Close()

	lim := NewHostLimiter(100, 1)
	f := NewFetcher(srv.Client(), lim, "")
	f.Backoff = time.Hour

	start := time.Now()
	body, err := f.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	_ = body.Close()
	assert.GreaterOrEqual(t, time.Since(start), 900*time.Millisecond)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestHostLimiterPenalize(t *testing.T) {
	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	lim := NewHostLimiter(0, 1)
	lim.now = func() time.Time { return now }

	lim.Penalize("https://www.wuzzuf.net/search/jobs/?q=go", 30*time.Second)
	assert.Equal(t, 30*time.Second, lim.Held("https://wuzzuf.net/jobs/p/1"))
	assert.Zero(t, lim.Held("https://eg.indeed.com/jobs"))

	lim.Penalize("https://wuzzuf.net/", 5*time.Second)
	assert.Equal(t, 30*time.Second, lim.Held("https://wuzzuf.net/"), "shorter hold must not shorten a pending one")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, lim.WaitURL(ctx, "https://wuzzuf.net/"), context.Canceled)
	require.NoError(t, lim.WaitURL(context.Background(), "https://eg.indeed.com/jobs"))
}

func TestFetcherGivesUpOnNotFound(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client(), nil, "")
	f.Backoff = time.Millisecond
	_, err := f.Get(context.Background(), srv.URL)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.False(t, IsRetryable(err))
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestSectionAfterHeading(t *testing.T) {
	html := `<div>
	  <h3>Job Requirements</h3>
	  <ul><li>ok</li><li>3+ years of Flutter</li><li>Strong Dart knowledge</li></ul>
	  <h3>Skills</h3><ul><li>Other list</li></ul>
	</div>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	got := SectionAfterHeading(doc.Selection, []string{"requirements"}, 5, 5)
	assert.Equal(t, []string{"3+ years of Flutter", "Strong Dart knowledge"}, got)
}

func TestNormalizeLocation(t *testing.T) {
	assert.Equal(t, "Egypt", NormalizeLocation(""))
	assert.Equal(t, "Maadi, Cairo, Egypt", NormalizeLocation("Maadi, Cairo, Cairo"))
	assert.Equal(t, "Cairo, Egypt", NormalizeLocation(" Cairo, Egypt "))
	assert.Equal(t, "Riyadh, Saudi Arabia", NormalizeLocation("Riyadh, Saudi Arabia"))
	assert.True(t, LooksLikeLocation("Giza"))
	assert.False(t, LooksLikeLocation("Full Time"))
}

func TestAbsolute(t *testing.T) {
	assert.Equal(t, "https://wuzzuf.net/jobs/p/x", Absolute("https://wuzzuf.net/search/jobs/", "/jobs/p/x"))
	assert.Equal(t, "https://other.com/a", Absolute("https://wuzzuf.net", "https://other.com/a"))
	assert.Equal(t, "", Absolute("https://wuzzuf.net", ""))
}
