package domain

import "time"

const (
	SourceWuzzuf = "wuzzuf"
	SourceIndeed = "indeed"
	SourceEmail  = "email"
)

// RawListing is what a source adapter yields before classification.
type RawListing struct {
	Source       string
	Title        string
	Company      string
	Location     string
	Link         string
	Body         string // list-view free text (snippet, card text)
	Salary       string
	Requirements []string
	Skills       []string
	Description  string
	PostedText   string // "2 hours ago" style hint, when the card has one

	// ParseErr is set by adapters when a card was found but could not be parsed.
	ParseErr error
}

// Job is a persisted, accepted listing.
type Job struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Company       string    `json:"company"`
	Location      string    `json:"location"`
	Salary        string    `json:"salary,omitempty"`
	Requirements  []string  `json:"requirements"`
	Skills        []string  `json:"skills"`
	Description   string    `json:"description"`
	Link          string    `json:"link"`
	CanonicalLink string    `json:"canonical_link"`
	Source        string    `json:"source"`
	Keyword       string    `json:"keyword"`
	CreatedAt     time.Time `json:"created_at"`

	PostedToBlog   bool   `json:"posted_to_blog"`
	SentToTelegram bool   `json:"sent_to_telegram"`
	SentToWhatsApp bool   `json:"sent_to_whatsapp"`
	BlogURL        string `json:"blog_url,omitempty"`
	ShortURL       string `json:"short_url,omitempty"`
}

// Delivered reports whether the job already carries the flag for channel.
func (j Job) Delivered(channel string) bool {
	switch channel {
	case ChannelBlog:
		return j.PostedToBlog
	case ChannelTelegram:
		return j.SentToTelegram
	case ChannelWhatsApp:
		return j.SentToWhatsApp
	}
	return false
}

// JobFromListing builds the record persisted for an accepted listing.
func JobFromListing(l RawListing, canonical, keyword string, now time.Time) Job {
	return Job{
		Title:         l.Title,
		Company:       l.Company,
		Location:      l.Location,
		Salary:        l.Salary,
		Requirements:  append([]string(nil), l.Requirements...),
		Skills:        append([]string(nil), l.Skills...),
		Description:   l.Description,
		Link:          l.Link,
		CanonicalLink: canonical,
		Source:        l.Source,
		Keyword:       keyword,
		CreatedAt:     now.UTC(),
	}
}

// Stats is the aggregate view over the Job store.
type Stats struct {
	TotalJobs      int            `json:"total_jobs"`
	BySource       map[string]int `json:"by_source"`
	WuzzufJobs     int            `json:"wuzzuf_jobs"`
	IndeedJobs     int            `json:"indeed_jobs"`
	PostedToBlog   int            `json:"posted_to_blog"`
	SentToTelegram int            `json:"sent_to_telegram"`
	SentToWhatsApp int            `json:"sent_to_whatsapp"`
	WithShortURL   int            `json:"with_short_url"`
}
