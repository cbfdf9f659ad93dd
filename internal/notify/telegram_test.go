package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/smartegg/smartegg-core/internal/alert"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, f.err
}

type recipient struct {
	chatID  int64
	enabled bool
}

type fakeRecipients map[string]recipient

func (f fakeRecipients) TelegramRecipient(_ context.Context, userID string) (int64, bool, error) {
	if userID == "broken" {
		return 0, false, errors.New("db locked")
	}
	r := f[userID]
	return r.chatID, r.enabled, nil
}

var recipients = fakeRecipients{
	"linked":   {chatID: 42, enabled: true},
	"muted":    {chatID: 43, enabled: false},
	"unlinked": {chatID: 0, enabled: true},
}

func TestTelegramChannel_Deliver(t *testing.T) {
	at := time.Date(2026, 3, 11, 10, 30, 0, 0, time.UTC)
	a := testAlert()
	n := Notice{Kind: KindAlert, IncubationID: "inc-1", Alert: &a, Timestamp: at}

	tests := []struct {
		user     string
		wantSent bool
		wantErr  bool
	}{
		{"linked", true, false},
		{"muted", false, false},
		{"unlinked", false, false},
		{"broken", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.user, func(t *testing.T) {
			sender := &fakeSender{}
			ch := NewTelegramChannel(sender, recipients, nil)

			err := ch.Deliver(context.Background(), tt.user, n)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Deliver() error = %v, wantErr %v", err, tt.wantErr)
			}
			if (len(sender.sent) == 1) != tt.wantSent {
				t.Fatalf("sent %d messages, wantSent %v", len(sender.sent), tt.wantSent)
			}
			if !tt.wantSent {
				return
			}

			msg := sender.sent[0]
			if msg.ChatID != 42 || msg.ParseMode != tgbotapi.ModeMarkdown {
				t.Errorf("message chat/mode = %d/%q", msg.ChatID, msg.ParseMode)
			}
			want := "🟡 *Temperatura fuera de rango*\n\nTemperatura actual: 38.5°C\n\nValor: 38.5\n\n_11/03/2026 10:30:00_"
			if msg.Text != want {
				t.Errorf("Text = %q, want %q", msg.Text, want)
			}
		})
	}
}

func TestTelegramChannel_SendError(t *testing.T) {
	sender := &fakeSender{err: errors.New("Forbidden: bot was blocked by the user")}
	ch := NewTelegramChannel(sender, recipients, nil)

	err := ch.Deliver(context.Background(), "linked", Notice{Kind: KindEggTurn, IncubationName: "Lote A", TurnCount: 2})
	if err == nil || !strings.Contains(err.Error(), "blocked") {
		t.Errorf("Deliver() error = %v, want send error", err)
	}
}

func TestFormatEggTurn(t *testing.T) {
	at := time.Date(2026, 3, 11, 8, 0, 0, 0, time.UTC)

	got := formatEggTurn("Lote_1", 7, at)
	want := "🔄 *Huevos Volteados*\n\nIncubación: Lote\\_1\nVolteo #7 completado exitosamente\n\n_11/03/2026 08:00:00_"
	if got != want {
		t.Errorf("formatEggTurn() = %q, want %q", got, want)
	}
}

func TestFormatAlert_WithoutValue(t *testing.T) {
	a := testAlert()
	a.Value = nil
	a.Severity = alert.Severity("unknown")

	got := formatAlert(&a, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	if strings.Contains(got, "Valor:") {
		t.Errorf("formatAlert() included Valor line: %q", got)
	}
	if !strings.HasPrefix(got, "⚪ ") {
		t.Errorf("formatAlert() = %q, want fallback emoji", got)
	}
}

func TestSeverityEmoji(t *testing.T) {
	tests := map[string]string{"critical": "🔴", "warning": "🟡", "info": "🔵"}
	for sev, want := range tests {
		if got := severityEmoji(alert.Severity(sev)); got != want {
			t.Errorf("severityEmoji(%s) = %q, want %q", sev, got, want)
		}
	}
}
