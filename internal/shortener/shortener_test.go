package shortener

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTinyURL_Shorten(t *testing.T) {
	var got tinyRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/create", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"data":{"tiny_url":"https://tinyurl.com/abc"},"code":0,"errors":[]}`))
	}))
	defer srv.Close()

	tu := NewTinyURL(srv.URL, "secret", srv.Client(), 100)
	short, err := tu.Shorten(context.Background(), "https://wuzzuf.net/jobs/p/1-go")
	require.NoError(t, err)
	assert.Equal(t, "https://tinyurl.com/abc", short)
	assert.Equal(t, "https://wuzzuf.net/jobs/p/1-go", got.URL)
	assert.Equal(t, "tinyurl.com", got.Domain)
}

func TestTinyURL_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":["Unauthorized"]}`))
	}))
	defer srv.Close()

	tu := NewTinyURL(srv.URL, "bad", srv.Client(), 100)
	_, err := tu.Shorten(context.Background(), "https://wuzzuf.net/jobs/p/1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")

	_, err = tu.Shorten(context.Background(), "https://eg.indeed.com/viewjob?jk=1")
	assert.ErrorIs(t, err, ErrUnsupportedHost)

	_, err = NewTinyURL(srv.URL, "", nil, 0).Shorten(context.Background(), "https://wuzzuf.net/jobs/p/1")
	assert.ErrorIs(t, err, ErrDisabled)

	_, err = Disabled{}.Shorten(context.Background(), "https://wuzzuf.net/jobs/p/1")
	assert.ErrorIs(t, err, ErrDisabled)
}

type countingGateway struct {
	calls int
	err   error
}

func (g *countingGateway) Shorten(_ context.Context, link string) (string, error) {
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	return "https://tinyurl.com/x" + link[len(link)-1:], nil
}

func TestCached_HitsRedisBeforeGateway(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	next := &countingGateway{}
	c := NewCached(next, rdb, time.Hour, nil)
	ctx := context.Background()

	first, err := c.Shorten(ctx, "https://wuzzuf.net/jobs/p/1")
	require.NoError(t, err)
	second, err := c.Shorten(ctx, "https://wuzzuf.net/jobs/p/1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, next.calls)
	assert.True(t, mr.Exists(cacheKey("https://wuzzuf.net/jobs/p/1")))

	mr.FastForward(2 * time.Hour)
	_, err = c.Shorten(ctx, "https://wuzzuf.net/jobs/p/1")
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
}

func TestCached_DoesNotCacheFailures(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	next := &countingGateway{err: errors.New("boom")}
	c := NewCached(next, rdb, time.Hour, nil)

	_, err := c.Shorten(context.Background(), "https://wuzzuf.net/jobs/p/2")
	require.Error(t, err)
	assert.False(t, mr.Exists(cacheKey("https://wuzzuf.net/jobs/p/2")))
}

func TestCached_FallsThroughWhenRedisIsDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	mr.Close()

	next := &countingGateway{}
	short, err := NewCached(next, rdb, time.Hour, nil).Shorten(context.Background(), "https://wuzzuf.net/jobs/p/3")
	require.NoError(t, err)
	assert.Equal(t, "https://tinyurl.com/x3", short)
}

func TestShortenable(t *testing.T) {
	assert.True(t, Shortenable("https://wuzzuf.net/jobs/p/1"))
	assert.False(t, Shortenable("https://eg.indeed.com/viewjob?jk=1"))
	assert.False(t, Shortenable("not a url"))
}
