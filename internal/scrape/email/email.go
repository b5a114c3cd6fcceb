// internal/scrape/email/email.go
package email_scrape

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
)

// Message is a minimal representation of an alert email.
type Message struct {
	UID     imap.UID
	From    string
	Subject string
	Date    time.Time

	// Raw is the full RFC822 message, fetched with BODY.PEEK[] so the
	// mailbox state is left untouched.
	Raw []byte
}

// Mailbox yields recent messages. IMAPMailbox is the production one.
type Mailbox interface {
	Recent(ctx context.Context) ([]Message, error)
}

type IMAPConfig struct {
	Host         string
	Port         int
	Username     string
	Password     string
	Mailbox      string
	LookbackDays int
	MaxMessages  int
}

func (c IMAPConfig) addr() string {
	if strings.Contains(c.Host, ":") {
		return c.Host
	}
	port := c.Port
	if port == 0 {
		port = 993
	}
	return fmt.Sprintf("%s:%d", c.Host, port)
}

type IMAPMailbox struct {
	cfg IMAPConfig
}

func NewIMAPMailbox(cfg IMAPConfig) *IMAPMailbox { return &IMAPMailbox{cfg: cfg} }

// Recent logs in, reads messages received within the lookback window
// (seen or not) and logs out.
func (m *IMAPMailbox) Recent(ctx context.Context) ([]Message, error) {
	c, err := DialAndLoginIMAP(ctx, m.cfg.addr(), m.cfg.Username, m.cfg.Password, &tls.Config{
		MinVersion: tls.VersionTLS12,
		ServerName: strings.Split(m.cfg.Host, ":")[0],
	})
	if err != nil {
		return nil, err
	}
	// unblock any pending command when the caller gives up
	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer stop()
	defer LogoutAndClose(c)

	mailbox := m.cfg.Mailbox
	if mailbox == "" {
		mailbox = "INBOX"
	}
	if _, err := c.Select(mailbox, &imap.SelectOptions{ReadOnly: true}).Wait(); err != nil {
		return nil, fmt.Errorf("imap select %q: %w", mailbox, err)
	}

	days := m.cfg.LookbackDays
	if days <= 0 {
		days = 2
	}
	return FetchSince(ctx, c, time.Now().AddDate(0, 0, -days), m.cfg.MaxMessages)
}

// DialAndLoginIMAP connects over TLS and logs in.
func DialAndLoginIMAP(ctx context.Context, addr, username, password string, tlsCfg *tls.Config) (*imapclient.Client, error) {
	if addr == "" {
		return nil, errors.New("imap addr is required")
	}
	if username == "" || password == "" {
		return nil, errors.New("imap username/password is required")
	}
	if tlsCfg == nil {
		tlsCfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	c, err := imapclient.DialTLS(addr, &imapclient.Options{TLSConfig: tlsCfg})
	if err != nil {
		return nil, fmt.Errorf("imap dial tls: %w", err)
	}

	if err := ctx.Err(); err != nil {
		_ = c.Close()
		return nil, err
	}
	if err := c.Login(username, password).Wait(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("imap login: %w", err)
	}
	return c, nil
}

// FetchSince pulls up to max messages received after since, newest first.
func FetchSince(ctx context.Context, c *imapclient.Client, since time.Time, max int) ([]Message, error) {
	if c == nil {
		return nil, errors.New("imap client is nil")
	}
	if max <= 0 {
		max = 50
	}

	searchData, err := c.UIDSearch(&imap.SearchCriteria{Since: since}, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("imap uid search: %w", err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return []Message{}, nil
	}
	for i, j := 0, len(uids)-1; i < j; i, j = i+1, j-1 {
		uids[i], uids[j] = uids[j], uids[i]
	}
	if len(uids) > max {
		uids = uids[:max]
	}

	bodyAll := &imap.FetchItemBodySection{Specifier: imap.PartSpecifierNone, Peek: true}
	fetchCmd := c.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		UID:         true,
		Envelope:    true,
		BodySection: []*imap.FetchItemBodySection{bodyAll},
	})
	defer func() { _ = fetchCmd.Close() }()

	out := make([]Message, 0, len(uids))
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		msgData := fetchCmd.Next()
		if msgData == nil {
			break
		}
		buf, err := msgData.Collect()
		if err != nil {
			return nil, fmt.Errorf("imap fetch collect: %w", err)
		}

		m := Message{UID: buf.UID}
		if buf.Envelope != nil {
			m.Subject = buf.Envelope.Subject
			m.Date = buf.Envelope.Date
			if len(buf.Envelope.From) > 0 {
				m.From = buf.Envelope.From[0].Addr()
			}
		}
		if b := buf.FindBodySection(bodyAll); b != nil {
			m.Raw = append([]byte(nil), b...)
		}
		if m.Subject == "" && len(m.Raw) > 0 {
			if am, err := readAlertMail(m.Raw); err == nil {
				m.Subject, m.From, m.Date = am.Subject, am.From, am.Date
			}
		}
		out = append(out, m)
	}

	if err := fetchCmd.Close(); err != nil {
		return nil, fmt.Errorf("imap fetch close: %w", err)
	}
	return out, nil
}

func LogoutAndClose(c *imapclient.Client) {
	if c == nil {
		return
	}
	_ = c.Logout().Wait()
	_ = c.Close()
}
