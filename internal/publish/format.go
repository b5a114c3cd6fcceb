package publish

import (
	"bytes"
	"html/template"
	"strings"

	"techflow-engine/internal/domain"
)

// Footer holds the promo lines appended to every channel message.
type Footer struct {
	WhatsAppChannel string
	TelegramChannel string
}

var bullets = []string{"🔹", "-", "✓", "•", "▪"}

// bulletFor picks a bullet style per job so consecutive posts vary while a
// given job always renders the same.
func bulletFor(id int64) string {
	if id < 0 {
		id = -id
	}
	return bullets[id%int64(len(bullets))]
}

func stripBullet(s string) string {
	s = strings.TrimSpace(s)
	for _, b := range []string{"🔹", "-", "•", "✓", "▪", "*"} {
		if strings.HasPrefix(s, b) {
			return strings.TrimSpace(strings.TrimPrefix(s, b))
		}
	}
	return s
}

var mdEscaper = strings.NewReplacer("_", `\_`, "*", `\*`, "[", `\[`, "`", "\\`")

// RenderMessage formats a job for the messaging channels. Formatting uses
// Telegram's legacy Markdown, which WhatsApp renders the same way.
func RenderMessage(job domain.Job, link string, footer Footer) string {
	var b strings.Builder
	b.WriteString("*" + mdEscaper.Replace(job.Title) + "*\n\n")
	b.WriteString("📍 *Location:* " + mdEscaper.Replace(job.Location) + "\n\n")

	label, items := "Requirements", job.Requirements
	if len(items) == 0 {
		label, items = "Skills", job.Skills
	}
	if len(items) > 0 {
		bullet := bulletFor(job.ID)
		b.WriteString("*" + label + ":*\n")
		for _, it := range items {
			if it = stripBullet(it); it != "" {
				b.WriteString(bullet + " " + mdEscaper.Replace(it) + "\n")
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("🔗 *Apply Here:* " + link + "\n")
	if footer.WhatsAppChannel != "" || footer.TelegramChannel != "" {
		b.WriteString("\n")
	}
	if footer.WhatsAppChannel != "" {
		b.WriteString("⚡ WhatsApp Channel: " + footer.WhatsAppChannel + "\n")
	}
	if footer.TelegramChannel != "" {
		b.WriteString("💬 Telegram Channel: " + footer.TelegramChannel + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

var blogTmpl = template.Must(template.New("post").Parse(`<div class="job-post">
  <h2>{{.Title}}</h2>
  <p><strong>{{.Company}}</strong> is hiring for this position. {{.Description}}</p>
{{- if .Technical}}
  <h3>Technical Requirements</h3>
  <ul>
{{- range .Technical}}
    <li>{{.}}</li>
{{- end}}
  </ul>
{{- end}}
{{- if .Qualifications}}
  <h3>Qualifications</h3>
  <ul>
{{- range .Qualifications}}
    <li>{{.}}</li>
{{- end}}
  </ul>
{{- end}}
  <h3>Job Details</h3>
  <ul>
    <li>Position: {{.Title}}</li>
    <li>Location: {{.Location}}</li>
    <li>Company: {{.Company}}</li>
{{- if .Salary}}
    <li>Salary: {{.Salary}}</li>
{{- end}}
  </ul>
  <p>Interested candidates are invited to apply through the link below:</p>
  <p><a class="apply-button" href="{{.Link}}">Apply Now</a></p>
  <p>Please check the job link for full details and application instructions.</p>
</div>
`))

type blogView struct {
	Title, Company, Location, Salary, Description string
	Technical, Qualifications                     []string
	Link                                          string
}

// RenderBlogPost builds the HTML body for the blog channel. Requirements are
// split into a technical half and a qualifications half.
func RenderBlogPost(job domain.Job) (string, error) {
	reqs := make([]string, 0, len(job.Requirements))
	for _, r := range job.Requirements {
		if r = stripBullet(r); r != "" {
			reqs = append(reqs, r)
		}
	}

	v := blogView{
		Title:       job.Title,
		Company:     orDefault(job.Company, "Company"),
		Location:    job.Location,
		Description: truncate(orDefault(job.Description, "Check job link for details"), 500),
		Link:        job.Link,
	}
	if job.Salary != "" && job.Salary != "Confidential" {
		v.Salary = job.Salary
	}
	if mid := len(reqs) / 2; mid > 0 {
		v.Technical = reqs[:mid]
		if len(reqs) > 3 {
			v.Qualifications = reqs[mid:]
		} else {
			v.Qualifications = reqs
		}
	} else {
		v.Technical = reqs
		v.Qualifications = reqs
	}

	var buf bytes.Buffer
	if err := blogTmpl.Execute(&buf, v); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
