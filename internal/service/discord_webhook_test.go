package service

import (
	"testing"

	"github.com/adrianoneco/app-chatapp/internal/metrics"
	"github.com/adrianoneco/app-chatapp/internal/model"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestParseWebhookURL(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		id      string
		token   string
		wantErr bool
	}{
		{"discord", "https://discord.com/api/webhooks/123/abc-DEF", "123", "abc-DEF", false},
		{"versioned", "https://discord.com/api/v10/webhooks/9/tok/", "9", "tok", false},
		{"missing token", "https://discord.com/api/webhooks/123", "", "", true},
		{"not a webhook", "https://example.com/hooks/1/2", "", "", true},
		{"unparsable", "://nope", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, token, err := parseWebhookURL(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.id, id)
			assert.Equal(t, tt.token, token)
		})
	}
}

func TestNewDiscordNotifier(t *testing.T) {
	n, err := NewDiscordNotifier("")
	assert.NoError(t, err)
	assert.Nil(t, n)

	_, err = NewDiscordNotifier("https://discord.com/api/nothing")
	assert.Error(t, err)

	n, err = NewDiscordNotifier("https://discord.com/api/webhooks/1/t")
	require.NoError(t, err)
	assert.Equal(t, "1", n.webhookID)
	assert.Equal(t, "t", n.token)
}

func TestDiscordNotifierDropsWhenLimited(t *testing.T) {
	n, err := NewDiscordNotifier("https://discord.com/api/webhooks/1/t")
	require.NoError(t, err)
	n.limiter = rate.NewLimiter(0, 0)

	before := testutil.ToFloat64(metrics.NotificationsDropped)
	n.ConversationCreated(&model.Conversation{Protocol: "ATD-2024-000001", Priority: model.PriorityUrgent})
	n.ClientMessage(&model.Conversation{Protocol: "ATD-2024-000001"}, &model.Message{SenderName: "Ana", Content: "hi"})
	assert.Equal(t, before+2, testutil.ToFloat64(metrics.NotificationsDropped))
}

func TestOrDash(t *testing.T) {
	assert.Equal(t, "-", orDash(nil))
	assert.Equal(t, "-", orDash(strp("")))
	assert.Equal(t, "Ana", orDash(strp("Ana")))
}
