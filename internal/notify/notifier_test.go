package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeTelegramAPI struct {
	mu    sync.Mutex
	texts []string
}

func (f *fakeTelegramAPI) handler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/getMe"):
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"bot","username":"bot"}}`))
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		_ = r.ParseForm()
		f.mu.Lock()
		f.texts = append(f.texts, r.FormValue("text"))
		f.mu.Unlock()
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":5,"type":"private"}}}`))
	default:
		_, _ = w.Write([]byte(`{"ok":true,"result":[]}`))
	}
}

func (f *fakeTelegramAPI) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

func TestTelegramDeliversQueuedMessagesOnStop(t *testing.T) {
	api := &fakeTelegramAPI{}
	srv := httptest.NewServer(http.HandlerFunc(api.handler))
	defer srv.Close()

	b, err := tgbot.NewBotAPIWithClient("token", srv.URL+"/bot%s/%s", srv.Client())
	if err != nil {
		t.Fatalf("bot: %v", err)
	}
	tg := newTelegram(b, 5, zap.NewNop())
	if err := tg.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	tg.Send("started")
	tg.Sendf("order %d filled", 7)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tg.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}

	got := api.sent()
	if len(got) != 2 || got[0] != "started" || got[1] != "order 7 filled" {
		t.Fatalf("sent %v", got)
	}
}

func TestTelegramWithoutChatIsSilent(t *testing.T) {
	tg := newTelegram(nil, 0, nil)
	tg.Send("nobody listens")
	if len(tg.queue) != 0 {
		t.Fatal("message queued without a bot")
	}
}

func TestStdoutLogs(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := NewStdout(zap.New(core))

	s.Sendf("stream reconnected: %s", "BTCUSDT")

	if logs.Len() != 1 || logs.All()[0].Message != "stream reconnected: BTCUSDT" {
		t.Fatalf("logs %v", logs.All())
	}
}
