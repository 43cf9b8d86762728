package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"NewsDigest/internal/config"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

// maxMessage is the Bot API text limit in characters.
const maxMessage = 4096

// Notifier sends digests to a Telegram chat via bot API.
type Notifier struct {
	apiBase  string
	botToken string
	chatID   string
	client   *http.Client
	now      func() time.Time
}

var _ ports.Delivery = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier.
func NewNotifier(cfg config.TelegramConfig, client *http.Client) *Notifier {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	base := strings.TrimRight(cfg.APIBase, "/")
	if base == "" {
		base = "https://api.telegram.org"
	}
	return &Notifier{
		apiBase:  base,
		botToken: cfg.BotToken,
		chatID:   cfg.ChatID,
		client:   client,
		now:      time.Now,
	}
}

// Name identifies the channel in logs.
func (n *Notifier) Name() string { return "telegram" }

// Deliver posts the digest as a Markdown message.
func (n *Notifier) Deliver(ctx context.Context, digest domain.DigestSummary) error {
	if n.botToken == "" || n.chatID == "" || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.botToken)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", Format(digest, n.now()))
	form.Set("parse_mode", "Markdown")
	form.Set("disable_web_page_preview", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}

	return nil
}

// Format renders the digest as legacy Markdown, cut to the message limit.
func Format(digest domain.DigestSummary, date time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*AI News Digest - %s*\n\n", date.Format("2006-01-02"))
	b.WriteString(escape(digest.OverallSummary))
	b.WriteString("\n")

	if len(digest.Insights) > 0 {
		b.WriteString("\n*Key Insights*\n")
		for _, insight := range digest.Insights {
			fmt.Fprintf(&b, "• %s\n", escape(insight))
		}
	}

	if len(digest.ArticleSummaries) > 0 {
		b.WriteString("\n*Articles*\n")
		for i, a := range digest.ArticleSummaries {
			fmt.Fprintf(&b, "%d. [%s](%s)\n%s\n", i+1, escapeLinkText(a.Title), a.URL, escape(a.Snippet))
		}
	}

	return truncate(strings.TrimRight(b.String(), "\n"), maxMessage)
}

var (
	markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")
	bracketReplacer = strings.NewReplacer("[", "(", "]", ")")
)

func escape(s string) string {
	return markdownEscaper.Replace(s)
}

func escapeLinkText(s string) string {
	return escape(bracketReplacer.Replace(s))
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-1]) + "…"
}
