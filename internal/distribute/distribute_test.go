package distribute

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techflow-engine/internal/domain"
	"techflow-engine/internal/publish"
	"techflow-engine/internal/shortener"
)

type fakeStore struct {
	mu      sync.Mutex
	blog    map[int64]string
	sent    map[int64]map[string]bool
	short   map[int64]string
	missing []domain.Job
}

func newFakeStore() *fakeStore {
	return &fakeStore{blog: map[int64]string{}, sent: map[int64]map[string]bool{}, short: map[int64]string{}}
}

func (s *fakeStore) MarkBlogPosted(_ context.Context, id int64, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blog[id] = url
	return nil
}

func (s *fakeStore) MarkChannelSent(_ context.Context, id int64, ch string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sent[id] == nil {
		s.sent[id] = map[string]bool{}
	}
	s.sent[id][ch] = true
	return nil
}

func (s *fakeStore) SetShortURL(_ context.Context, id int64, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.short[id] = url
	return nil
}

func (s *fakeStore) JobsMissingShortURL(context.Context, int) ([]domain.Job, error) {
	return s.missing, nil
}

type fakeGateway struct {
	channel string
	failFor map[int64]bool

	mu    sync.Mutex
	posts []publish.Post
}

func (g *fakeGateway) Channel() string { return g.channel }

func (g *fakeGateway) Publish(_ context.Context, p publish.Post) (publish.Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failFor[p.JobID] {
		return publish.Result{}, errors.New("upstream 500")
	}
	g.posts = append(g.posts, p)
	if g.channel == domain.ChannelBlog {
		return publish.Result{URL: "https://blog.example.com/p"}, nil
	}
	return publish.Result{}, nil
}

type fakeShortener struct {
	err error
}

func (f fakeShortener) Shorten(_ context.Context, link string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "https://tinyurl.com/" + link[len(link)-1:], nil
}

type captureRecorder struct {
	mu      sync.Mutex
	entries []domain.LogEntry
}

func (r *captureRecorder) Record(_ context.Context, level domain.LogLevel, msg string, meta map[string]any) domain.LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := domain.LogEntry{Level: level, Message: msg, Metadata: meta}
	r.entries = append(r.entries, e)
	return e
}

func (r *captureRecorder) errors() []domain.LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.LogEntry
	for _, e := range r.entries {
		if e.Level == domain.LevelError {
			out = append(out, e)
		}
	}
	return out
}

func jobs() []domain.Job {
	return []domain.Job{
		{ID: 1, Title: "Go Dev", Location: "Cairo, Egypt", Link: "https://wuzzuf.net/jobs/p/1", CanonicalLink: "https://wuzzuf.net/jobs/p/1"},
		{ID: 2, Title: "Flutter Dev", Location: "Giza, Egypt", Link: "https://wuzzuf.net/jobs/p/2", CanonicalLink: "https://wuzzuf.net/jobs/p/2"},
	}
}

func TestDistribute_PartialFailureIsIsolated(t *testing.T) {
	st := newFakeStore()
	rec := &captureRecorder{}
	blog := &fakeGateway{channel: domain.ChannelBlog}
	tg := &fakeGateway{channel: domain.ChannelTelegram, failFor: map[int64]bool{1: true}}
	wa := &fakeGateway{channel: domain.ChannelWhatsApp}

	d := New(Config{
		Store:     st,
		Shortener: fakeShortener{},
		Gateways:  []publish.Gateway{blog, tg, wa},
		Recorder:  rec,
	})
	rep := d.Distribute(context.Background(), jobs(), domain.RunConfig{
		UploadToBlog: true, SendToTelegram: true, SendToWhatsApp: true, UseShortener: true,
	})

	assert.Equal(t, 2, rep.Shortened)
	assert.Equal(t, 2, rep.Delivered[domain.ChannelBlog])
	assert.Equal(t, 1, rep.Delivered[domain.ChannelTelegram])
	assert.Equal(t, 1, rep.Failed[domain.ChannelTelegram])
	assert.Equal(t, 2, rep.Delivered[domain.ChannelWhatsApp])

	assert.False(t, st.sent[1][domain.ChannelTelegram])
	assert.True(t, st.sent[1][domain.ChannelWhatsApp])
	assert.True(t, st.sent[2][domain.ChannelTelegram])
	assert.Equal(t, "https://blog.example.com/p", st.blog[1])
	assert.Equal(t, "https://tinyurl.com/1", st.short[1])

	errs := rec.errors()
	require.Len(t, errs, 1)
	assert.Equal(t, int64(1), errs[0].Metadata["job_id"])
	assert.Equal(t, domain.ChannelTelegram, errs[0].Metadata["channel"])

	for _, p := range wa.posts {
		assert.Contains(t, p.Text, "https://tinyurl.com/")
	}
}

func TestDistribute_LinkFallbackChain(t *testing.T) {
	st := newFakeStore()
	wa := &fakeGateway{channel: domain.ChannelWhatsApp}
	d := New(Config{Store: st, Shortener: fakeShortener{err: errors.New("quota")}, Gateways: []publish.Gateway{wa}})

	js := jobs()
	js[0].PostedToBlog = true
	js[0].BlogURL = "https://blog.example.com/go-dev"

	rep := d.Distribute(context.Background(), js, domain.RunConfig{SendToWhatsApp: true, UseShortener: true})
	assert.Equal(t, 0, rep.Shortened)
	require.Len(t, wa.posts, 2)

	byID := map[int64]string{}
	for _, p := range wa.posts {
		byID[p.JobID] = p.Text
	}
	assert.Contains(t, byID[1], "https://blog.example.com/go-dev")
	assert.Contains(t, byID[2], "https://wuzzuf.net/jobs/p/2")
	assert.Empty(t, st.short)
}

func TestDistribute_SkipsDeliveredAndDisabledChannels(t *testing.T) {
	st := newFakeStore()
	tg := &fakeGateway{channel: domain.ChannelTelegram}
	d := New(Config{Store: st, Gateways: []publish.Gateway{tg}})

	js := jobs()
	js[0].SentToTelegram = true
	rep := d.Distribute(context.Background(), js, domain.RunConfig{SendToTelegram: true})

	assert.Equal(t, 1, rep.Delivered[domain.ChannelTelegram])
	require.Len(t, tg.posts, 1)
	assert.Equal(t, int64(2), tg.posts[0].JobID)
}

func TestDistribute_MissingGatewayIsADeliveryError(t *testing.T) {
	rec := &captureRecorder{}
	d := New(Config{Store: newFakeStore(), Recorder: rec})
	rep := d.Distribute(context.Background(), jobs()[:1], domain.RunConfig{UploadToBlog: true})
	assert.Equal(t, 1, rep.Failed[domain.ChannelBlog])
	assert.Len(t, rec.errors(), 1)
}

func TestRefreshShortLinks(t *testing.T) {
	st := newFakeStore()
	st.missing = []domain.Job{
		{ID: 1, Link: "https://wuzzuf.net/jobs/p/1", CanonicalLink: "https://wuzzuf.net/jobs/p/1"},
		{ID: 2, Link: "https://eg.indeed.com/viewjob?jk=2", CanonicalLink: "https://eg.indeed.com/viewjob?jk=2"},
		{ID: 3, Link: "https://wuzzuf.net/jobs/p/3", CanonicalLink: "https://wuzzuf.net/jobs/p/3"},
	}
	d := New(Config{Store: st, Shortener: fakeShortener{}})

	n, err := d.RefreshShortLinks(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "https://tinyurl.com/3", st.short[3])
	_, has := st.short[2]
	assert.False(t, has)

	n, err = New(Config{Store: st, Shortener: shortener.Disabled{}}).RefreshShortLinks(context.Background(), 100)
	require.NoError(t, err)
	assert.Zero(t, n)
}
