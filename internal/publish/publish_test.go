package publish

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techflow-engine/internal/domain"
)

func sampleJob() domain.Job {
	return domain.Job{
		ID:           7,
		Title:        "Senior_Go Engineer",
		Company:      "Acme",
		Location:     "Cairo, Egypt",
		Requirements: []string{"- 3+ years Go", "🔹 SQL", "Docker", "Kubernetes"},
		Skills:       []string{"go"},
		Description:  "Build services.",
		Link:         "https://wuzzuf.net/jobs/p/1-go",
	}
}

func TestRenderMessage(t *testing.T) {
	msg := RenderMessage(sampleJob(), "https://tinyurl.com/abc", Footer{
		WhatsAppChannel: "https://wa.me/channel",
		TelegramChannel: "https://t.me/channel",
	})

	assert.True(t, strings.HasPrefix(msg, `*Senior\_Go Engineer*`))
	assert.Contains(t, msg, "📍 *Location:* Cairo, Egypt")
	assert.Contains(t, msg, "*Requirements:*")
	bullet := bulletFor(7)
	assert.Contains(t, msg, bullet+" 3+ years Go")
	assert.Contains(t, msg, bullet+" SQL")
	assert.Contains(t, msg, "🔗 *Apply Here:* https://tinyurl.com/abc")
	assert.Contains(t, msg, "⚡ WhatsApp Channel: https://wa.me/channel")
	assert.True(t, strings.HasSuffix(msg, "💬 Telegram Channel: https://t.me/channel"))
}

func TestRenderMessage_FallsBackToSkills(t *testing.T) {
	j := sampleJob()
	j.Requirements = nil
	msg := RenderMessage(j, j.Link, Footer{})
	assert.Contains(t, msg, "*Skills:*")
	assert.NotContains(t, msg, "Channel:")
}

func TestRenderBlogPost(t *testing.T) {
	j := sampleJob()
	j.Company = "<script>x</script>"
	html, err := RenderBlogPost(j)
	require.NoError(t, err)

	assert.Contains(t, html, "<h3>Technical Requirements</h3>")
	assert.Contains(t, html, "<li>3+ years Go</li>")
	assert.Contains(t, html, "<h3>Qualifications</h3>")
	assert.Contains(t, html, "<li>Docker</li>")
	assert.Contains(t, html, `href="https://wuzzuf.net/jobs/p/1-go"`)
	assert.NotContains(t, html, "<script>")
}

func TestBlogger_Publish(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/blogs/123/posts/", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		var body bloggerPost
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "blogger#post", body.Kind)
		assert.Equal(t, []string{"Jobs"}, body.Labels)
		_, _ = w.Write([]byte(`{"url":"https://blog.example.com/2026/10/go.html"}`))
	}))
	defer srv.Close()

	res, err := NewBlogger(srv.URL, "123", "tok", srv.Client()).Publish(context.Background(), Post{Title: "Go", HTML: "<p>x</p>"})
	require.NoError(t, err)
	assert.Equal(t, "https://blog.example.com/2026/10/go.html", res.URL)
}

func TestTelegram_Publish(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		var body telegramMessage
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "@channel", body.ChatID)
		assert.Equal(t, "Markdown", body.ParseMode)
		if body.Text == "fail" {
			_, _ = w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tg := NewTelegram(srv.URL, "TOKEN", "@channel", srv.Client())
	_, err := tg.Publish(context.Background(), Post{Text: "hello"})
	require.NoError(t, err)

	_, err = tg.Publish(context.Background(), Post{Text: "fail"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestTelegram_RedactsTokenFromErrors(t *testing.T) {
	tg := NewTelegram("http://127.0.0.1:1", "SECRET", "@c", nil)
	_, err := tg.Publish(context.Background(), Post{Text: "x"})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "SECRET")
}

func TestWhatsApp_Publish(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v18.0/555/messages", r.URL.Path)
		assert.Equal(t, "Bearer wa", r.Header.Get("Authorization"))
		var body whatsAppMessage
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "whatsapp", body.MessagingProduct)
		assert.Equal(t, "text", body.Type)
		assert.Equal(t, "hi", body.Text.Body)
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.1"}]}`))
	}))
	defer srv.Close()

	_, err := NewWhatsApp(srv.URL, "wa", "555", "201000000000", srv.Client()).Publish(context.Background(), Post{Text: "hi"})
	require.NoError(t, err)
}

func TestGateways_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewWhatsApp(srv.URL, "wa", "555", "1", srv.Client()).Publish(context.Background(), Post{Text: "hi"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Equal(t, domain.ChannelWhatsApp, apiErr.Channel)
}

func TestGateways_NotConfigured(t *testing.T) {
	ctx := context.Background()
	_, err := NewBlogger("", "", "", nil).Publish(ctx, Post{HTML: "x"})
	assert.Error(t, err)
	_, err = NewTelegram("", "", "", nil).Publish(ctx, Post{Text: "x"})
	assert.Error(t, err)
	_, err = NewWhatsApp("", "", "", "", nil).Publish(ctx, Post{Text: "x"})
	assert.Error(t, err)
}
