package email_scrape

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

const maxPartBytes = 8 << 20

// alertMail is a decoded alert email: header fields plus the largest
// text/plain and text/html parts, transfer-encoding and charset removed.
type alertMail struct {
	Subject string
	From    string
	Date    time.Time
	Plain   string
	HTML    string
}

func readAlertMail(raw []byte) (alertMail, error) {
	var out alertMail
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) {
		return out, err
	}
	defer mr.Close()

	if s, err := mr.Header.Subject(); err == nil {
		out.Subject = strings.TrimSpace(s)
	} else {
		out.Subject = strings.TrimSpace(mr.Header.Get("Subject"))
	}
	if from, err := mr.Header.AddressList("From"); err == nil && len(from) > 0 {
		out.From = from[0].Address
	}
	if d, err := mr.Header.Date(); err == nil {
		out.Date = d
	}

	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// keep whatever parts decoded before the broken one
			break
		}
		h, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		ct, _, _ := h.ContentType()
		body, _ := io.ReadAll(io.LimitReader(p.Body, maxPartBytes))

		switch {
		case strings.HasPrefix(ct, "text/html"):
			if len(body) > len(out.HTML) {
				out.HTML = string(body)
			}
		case ct == "" || strings.HasPrefix(ct, "text/plain"):
			if len(body) > len(out.Plain) {
				out.Plain = string(body)
			}
		}
	}
	return out, nil
}

// decodeAlert never fails: an undecodable message is treated as plain text
// under the envelope subject.
func decodeAlert(m Message) alertMail {
	am, err := readAlertMail(m.Raw)
	if err != nil {
		return alertMail{Subject: m.Subject, From: m.From, Date: m.Date, Plain: string(m.Raw)}
	}
	if am.Subject == "" {
		am.Subject = m.Subject
	}
	if am.From == "" {
		am.From = m.From
	}
	if am.Date.IsZero() {
		am.Date = m.Date
	}
	return am
}
