// Package email delivers digests as HTML mail over SMTP.
package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"log/slog"
	"mime"
	"net"
	"net/smtp"
	"os"
	"strconv"
	"strings"
	"time"

	"NewsDigest/internal/config"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

// Sender renders a digest and hands it to an SMTP relay.
type Sender struct {
	cfg    config.EmailConfig
	tmpl   *template.Template
	logger *slog.Logger
	send   func(ctx context.Context, msg []byte) error
	now    func() time.Time
}

var _ ports.Delivery = (*Sender)(nil)

// NewSender parses cfg.Template when set and falls back to the built-in layout
// when it is missing or broken.
func NewSender(cfg config.EmailConfig, logger *slog.Logger) *Sender {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Sender{cfg: cfg, logger: logger, now: time.Now}
	s.tmpl = loadTemplate(cfg.Template, logger)
	s.send = s.sendSMTP
	return s
}

// Name identifies the channel in logs.
func (s *Sender) Name() string { return "email" }

// Deliver renders the digest and sends one message to every recipient.
func (s *Sender) Deliver(ctx context.Context, digest domain.DigestSummary) error {
	if s.cfg.Host == "" || s.cfg.From == "" || len(s.cfg.To) == 0 {
		return fmt.Errorf("email: sender misconfigured")
	}

	now := s.now()
	body, err := s.Render(digest, now)
	if err != nil {
		return err
	}
	subject := "AI News Digest - " + now.Format("2006-01-02")
	if err := s.send(ctx, buildMessage(s.cfg.From, s.cfg.To, subject, body)); err != nil {
		return fmt.Errorf("email: failed to send: %w", err)
	}
	s.logger.Info("digest email sent", "to", strings.Join(s.cfg.To, ","))
	return nil
}

// Render produces the HTML body.
func (s *Sender) Render(digest domain.DigestSummary, date time.Time) (string, error) {
	var buf bytes.Buffer
	err := s.tmpl.Execute(&buf, view{
		Date:           date.Format("January 02, 2006"),
		OverallSummary: digest.OverallSummary,
		Insights:       digest.Insights,
		Articles:       digest.ArticleSummaries,
	})
	if err != nil {
		return "", fmt.Errorf("email: render: %w", err)
	}
	return buf.String(), nil
}

type view struct {
	Date           string
	OverallSummary string
	Insights       []string
	Articles       []domain.ArticleSummary
}

func loadTemplate(path string, logger *slog.Logger) *template.Template {
	fallback := template.Must(template.New("digest").Parse(fallbackLayout))
	if path == "" {
		return fallback
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("email template not found, using fallback", "path", path, "error", err)
		return fallback
	}
	tmpl, err := template.New("digest").Parse(string(raw))
	if err != nil {
		logger.Warn("email template is invalid, using fallback", "path", path, "error", err)
		return fallback
	}
	return tmpl
}

func buildMessage(from string, to []string, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

func (s *Sender) sendSMTP(ctx context.Context, msg []byte) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer c.Close()

	if s.cfg.UseTLS {
		if err := c.StartTLS(&tls.Config{ServerName: s.cfg.Host}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}
	if s.cfg.Username != "" && s.cfg.Password != "" {
		if err := c.Auth(smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}

	if err := c.Mail(s.cfg.From); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	for _, rcpt := range s.cfg.To {
		if err := c.Rcpt(rcpt); err != nil {
			return fmt.Errorf("rcpt %s: %w", rcpt, err)
		}
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close body: %w", err)
	}
	return c.Quit()
}

const fallbackLayout = `<html>
<head>
<style>
body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
.container { max-width: 800px; margin: 0 auto; padding: 20px; }
h1 { color: #2c3e50; }
h2 { color: #34495e; margin-top: 30px; }
.article { margin: 20px 0; padding: 15px; background: #f8f9fa; border-left: 4px solid #007bff; }
.article h3 { margin-top: 0; }
.key-points { margin: 10px 0; }
.insights { background: #e8f4f8; padding: 15px; border-radius: 5px; }
a { color: #007bff; text-decoration: none; }
</style>
</head>
<body>
<div class="container">
<h1>AI News Digest - {{.Date}}</h1>
<h2>Overall Summary</h2>
<p>{{.OverallSummary}}</p>
{{- if .Insights}}
<div class="insights">
<h2>Key Insights</h2>
<ul>
{{- range .Insights}}
<li>{{.}}</li>
{{- end}}
</ul>
</div>
{{- end}}
<h2>Article Summaries</h2>
{{- range .Articles}}
<div class="article">
<h3>{{.Title}}</h3>
<p>{{.Snippet}}</p>
{{- if .KeyPoints}}
<div class="key-points"><strong>Key Points:</strong><ul>
{{- range .KeyPoints}}
<li>{{.}}</li>
{{- end}}
</ul></div>
{{- end}}
<p><a href="{{.URL}}">Read more →</a></p>
</div>
{{- end}}
</div>
</body>
</html>
`
