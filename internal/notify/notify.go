// Package notify renders digest summaries to HTML and delivers them by
// email. Delivery failure never fails the digest job that produced the
// summary; the orchestrator logs and moves on.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"

	"github.com/citegap/citegap/internal/config"
	"github.com/citegap/citegap/internal/core"
	"github.com/citegap/citegap/internal/logger"
)

const digestHTML = `<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; max-width: 640px; margin: 0 auto;">
  <h2>{{.BrandName}} — daily visibility digest</h2>
  <p style="color: #666;">{{.WindowStart.Format "Jan 2 15:04"}} to {{.WindowEnd.Format "Jan 2 15:04"}}</p>
{{if .QuietDay}}
  <p>A quiet day: no scans and no memo activity in this window. Nothing is broken; there was simply nothing to report.</p>
{{else}}
  <ul>
    <li><strong>{{.TotalScans}}</strong> scans, <strong>{{.MentionedScans}}</strong> mentioned the brand</li>
    <li><strong>{{.FirstCitations}}</strong> first citations, <strong>{{.LostCitations}}</strong> lost citations</li>
    <li><strong>{{.MemosGenerated}}</strong> memos generated, <strong>{{.MemosPublished}}</strong> published</li>
    <li><strong>{{.CompetitorContentDetected}}</strong> scans cited competitors without the brand</li>
    <li>Prompt coverage: <strong>{{.CitedPrompts}}</strong> of <strong>{{.ActivePrompts}}</strong> active prompts cited</li>
  </ul>
{{if .TopCompetitors}}
  <h3>Top competitor mentions</h3>
  <ol>
  {{range .TopCompetitors}}<li>{{.Name}} ({{.Count}})</li>
  {{end}}</ol>
{{end}}
{{if .StreakMilestones}}
  <h3>Citation streaks</h3>
  <ul>
  {{range .StreakMilestones}}<li>&ldquo;{{.QueryText}}&rdquo; cited {{.Streak}} scans in a row</li>
  {{end}}</ul>
{{end}}
{{end}}
</body>
</html>`

var digestTmpl = template.Must(template.New("digest").Parse(digestHTML))

// Render produces the digest email body.
func Render(s *core.DigestSummary) (string, error) {
	var buf bytes.Buffer
	if err := digestTmpl.Execute(&buf, s); err != nil {
		return "", fmt.Errorf("render digest: %w", err)
	}
	return buf.String(), nil
}

// Mailer delivers rendered digests over SMTP.
type Mailer struct {
	cfg  config.Email
	send func(*gomail.Message) error
	log  zerolog.Logger
}

func New(cfg config.Email) *Mailer {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	send := func(msg *gomail.Message) error { return dialer.DialAndSend(msg) }
	return &Mailer{cfg: cfg, send: send, log: logger.With("notify")}
}

// Deliver renders and emails one brand's digest.
func (m *Mailer) Deliver(_ context.Context, s *core.DigestSummary) error {
	if !m.cfg.Enabled {
		return nil
	}

	body, err := Render(s)
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("%s daily digest: %d scans, %d memos", s.BrandName, s.TotalScans, s.MemosGenerated)
	if s.QuietDay {
		subject = fmt.Sprintf("%s daily digest: quiet day", s.BrandName)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", m.cfg.To)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	if err := m.send(msg); err != nil {
		return fmt.Errorf("send digest email: %w", err)
	}
	m.log.Info().Str("brand", s.BrandID).Bool("quiet_day", s.QuietDay).Msg("digest delivered")
	return nil
}
