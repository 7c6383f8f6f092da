package notify

import (
	"context"
	"fmt"
	"sync"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Notifier — push-сообщения оператору. Fire-and-forget: ошибки доставки не возвращаются.
type Notifier interface {
	Send(msg string)
	Sendf(format string, args ...any)
}

// StatusProvider отвечает на команду /status.
type StatusProvider interface {
	Status() string
}

const queueSize = 256

// Telegram — отправка через очередь, чтобы торговый цикл не ждал сеть,
// плюс одна команда /status.
type Telegram struct {
	bot    *tgbot.BotAPI
	chatID int64
	logger *zap.Logger

	queue chan string
	done  chan struct{}
	wg    sync.WaitGroup

	mu     sync.RWMutex
	status StatusProvider
}

func NewTelegram(token string, chatID int64, logger *zap.Logger) (*Telegram, error) {
	b, err := tgbot.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return newTelegram(b, chatID, logger), nil
}

func newTelegram(b *tgbot.BotAPI, chatID int64, logger *zap.Logger) *Telegram {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Telegram{
		bot:    b,
		chatID: chatID,
		logger: logger.Named("telegram"),
		queue:  make(chan string, queueSize),
		done:   make(chan struct{}),
	}
}

func (t *Telegram) SetStatusProvider(p StatusProvider) {
	t.mu.Lock()
	t.status = p
	t.mu.Unlock()
}

func (t *Telegram) Send(msg string) {
	if t == nil || t.bot == nil || t.chatID == 0 {
		return
	}
	select {
	case t.queue <- msg:
	default:
		t.logger.Warn("notify queue full, message dropped", zap.String("msg", msg))
	}
}

func (t *Telegram) Sendf(format string, args ...any) { t.Send(fmt.Sprintf(format, args...)) }

func (t *Telegram) deliver(msg string) {
	if _, err := t.bot.Send(tgbot.NewMessage(t.chatID, msg)); err != nil {
		t.logger.Warn("telegram send failed", zap.Error(err))
	}
}

// Start: воркер отправки + long-polling для /status, если задан провайдер.
func (t *Telegram) Start(ctx context.Context) error {
	if t == nil || t.bot == nil {
		return nil
	}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		for {
			select {
			case msg := <-t.queue:
				t.deliver(msg)
			case <-t.done:
				// дослать то, что уже в очереди
				for {
					select {
					case msg := <-t.queue:
						t.deliver(msg)
					default:
						return
					}
				}
			}
		}
	}()

	t.mu.RLock()
	polling := t.status != nil
	t.mu.RUnlock()
	if polling {
		t.poll()
	}
	return nil
}

func (t *Telegram) poll() {
	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = []string{"message"}

	updates := t.bot.GetUpdatesChan(u)
	go func() {
		for {
			select {
			case <-t.done:
				t.bot.StopReceivingUpdates()
				return
			case upd, ok := <-updates:
				if !ok {
					return
				}
				if upd.Message == nil || upd.Message.Chat == nil ||
					upd.Message.Chat.ID != t.chatID || !upd.Message.IsCommand() {
					continue
				}
				switch upd.Message.Command() {
				case "status", "positions":
					t.mu.RLock()
					p := t.status
					t.mu.RUnlock()
					if p != nil {
						t.Send(p.Status())
					}
				}
			}
		}
	}()
}

// Stop досылает очередь и останавливает воркер.
func (t *Telegram) Stop(ctx context.Context) error {
	if t == nil || t.bot == nil {
		return nil
	}
	close(t.done)

	finished := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stdout — заглушка без Telegram, всё в лог.
type Stdout struct {
	logger *zap.Logger
}

func NewStdout(logger *zap.Logger) *Stdout {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Stdout{logger: logger.Named("notify")}
}

func (s *Stdout) Send(msg string)                  { s.logger.Info(msg) }
func (s *Stdout) Sendf(format string, args ...any) { s.Send(fmt.Sprintf(format, args...)) }
