package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsDigest/internal/config"
	"NewsDigest/internal/domain"
)

func sampleDigest() domain.DigestSummary {
	return domain.DigestSummary{
		OverallSummary: "Models got *faster*.",
		Insights:       []string{"Inference costs fell", "Open weights matter"},
		ArticleSummaries: []domain.ArticleSummary{
			{Title: "Chip [news]", URL: "https://example.com/chips", Snippet: "New accelerator_v2 shipped."},
		},
	}
}

func TestDeliverPostsMarkdown(t *testing.T) {
	t.Parallel()

	var form map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		form = map[string]string{
			"chat_id":    r.PostForm.Get("chat_id"),
			"parse_mode": r.PostForm.Get("parse_mode"),
			"text":       r.PostForm.Get("text"),
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewNotifier(config.TelegramConfig{APIBase: srv.URL + "/", BotToken: "TOKEN", ChatID: "42"}, srv.Client())
	n.now = func() time.Time { return time.Date(2025, 5, 2, 7, 0, 0, 0, time.UTC) }

	require.NoError(t, n.Deliver(context.Background(), sampleDigest()))
	assert.Equal(t, "42", form["chat_id"])
	assert.Equal(t, "Markdown", form["parse_mode"])
	assert.True(t, strings.HasPrefix(form["text"], "*AI News Digest - 2025-05-02*"))
	assert.Equal(t, "telegram", n.Name())
}

func TestDeliverReportsFailures(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	n := NewNotifier(config.TelegramConfig{APIBase: srv.URL, BotToken: "T", ChatID: "1"}, srv.Client())
	assert.ErrorContains(t, n.Deliver(context.Background(), sampleDigest()), "400")

	empty := NewNotifier(config.TelegramConfig{}, nil)
	assert.ErrorContains(t, empty.Deliver(context.Background(), sampleDigest()), "misconfigured")
}

func TestFormat(t *testing.T) {
	t.Parallel()

	text := Format(sampleDigest(), time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC))

	assert.Contains(t, text, "Models got \\*faster\\*.")
	assert.Contains(t, text, "• Inference costs fell")
	assert.Contains(t, text, "1. [Chip (news)](https://example.com/chips)")
	assert.Contains(t, text, "accelerator\\_v2")

	long := domain.DigestSummary{OverallSummary: strings.Repeat("a", 5000)}
	out := Format(long, time.Now())
	assert.Equal(t, maxMessage, len([]rune(out)))
	assert.True(t, strings.HasSuffix(out, "…"))
}
