package publish

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"techflow-engine/internal/domain"
)

const defaultBloggerBase = "https://www.googleapis.com/blogger/v3"

type Blogger struct {
	base   string
	blogID string
	token  string
	client *http.Client
}

func NewBlogger(base, blogID, accessToken string, client *http.Client) *Blogger {
	if base == "" {
		base = defaultBloggerBase
	}
	return &Blogger{base: strings.TrimRight(base, "/"), blogID: blogID, token: accessToken, client: defaultClient(client)}
}

func (b *Blogger) Channel() string { return domain.ChannelBlog }

type bloggerPost struct {
	Kind    string   `json:"kind"`
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Labels  []string `json:"labels"`
}

func (b *Blogger) Publish(ctx context.Context, p Post) (Result, error) {
	if b.blogID == "" || b.token == "" {
		return Result{}, errors.New("blogger not configured")
	}
	if strings.TrimSpace(p.HTML) == "" {
		return Result{}, errors.New("blogger: empty post content")
	}
	labels := p.Labels
	if len(labels) == 0 {
		labels = []string{"Jobs"}
	}

	endpoint := fmt.Sprintf("%s/blogs/%s/posts/?isDraft=false", b.base, url.PathEscape(b.blogID))
	var out struct {
		URL string `json:"url"`
	}
	err := postJSON(ctx, b.client, b.Channel(), endpoint, b.token,
		bloggerPost{Kind: "blogger#post", Title: p.Title, Content: p.HTML, Labels: labels}, &out)
	if err != nil {
		return Result{}, err
	}
	if out.URL == "" {
		return Result{}, errors.New("blogger: response has no post url")
	}
	return Result{URL: out.URL}, nil
}
