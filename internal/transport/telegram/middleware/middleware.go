package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	tele "gopkg.in/telebot.v4"
)

func Logger() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			now := time.Now()

			rqID := uuid.NewString()
			c.Set("rqID", rqID)

			slog.Info(
				"start request",
				slog.String("rqID", rqID),
			)

			defer func() {
				slog.Info(
					"request finished",
					slog.String("rqID", rqID),
					slog.String("request duration", fmt.Sprintf("%.2fs", time.Since(now).Seconds())),
				)
			}()

			return next(c)
		}
	}
}

// Recover гасит панику обработчика: пользователь получает общий ответ,
// сессия остается как была до сообщения.
func Recover() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			defer func() {
				if r := recover(); r != nil {
					rqID, _ := c.Get("rqID").(string)
					slog.Error(
						"panic recovered in handler",
						slog.String("rqID", rqID),
						slog.Any("panic", r),
						slog.String("stacktrace", string(debug.Stack())),
					)
					_ = c.Send("что-то пошло не так...")
				}
			}()

			return next(c)
		}
	}
}

// Sequencer сериализует обработку сообщений в пределах одного чата строго
// в порядке поступления. Телебот запускает обработчики в отдельных
// горутинах, и мьютекса тут мало: порядок захвата мьютекса не обязан
// совпадать с порядком апдейтов. Поэтому билет на обработку выдается еще
// в горутине поллера (WrapPoller), а обработчик ждет своей очереди по
// цепочке билетов. Разные чаты друг друга не ждут.
type Sequencer struct {
	mu      sync.Mutex
	tails   map[int64]chan struct{}
	tickets map[int]ticket
}

type ticket struct {
	chatID int64
	prev   chan struct{}
	done   chan struct{}
}

func NewSequencer() *Sequencer {
	return &Sequencer{
		tails:   make(map[int64]chan struct{}),
		tickets: make(map[int]ticket),
	}
}

// WrapPoller выдает билеты в единственной горутине поллера - порядок
// билетов совпадает с порядком поступления апдейтов.
func (s *Sequencer) WrapPoller(p tele.Poller) tele.Poller {
	return tele.NewMiddlewarePoller(p, s.enqueue)
}

func (s *Sequencer) enqueue(u *tele.Update) bool {
	if u.Message == nil || u.Message.Chat == nil {
		return true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	chatID := u.Message.Chat.ID
	done := make(chan struct{})
	s.tickets[u.ID] = ticket{chatID: chatID, prev: s.tails[chatID], done: done}
	s.tails[chatID] = done

	return true
}

// Middleware ждет закрытия билета предыдущего сообщения того же чата и
// закрывает свой билет по окончании обработки, в том числе при панике.
func (s *Sequencer) Middleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			s.mu.Lock()
			t, ok := s.tickets[c.Update().ID]
			delete(s.tickets, c.Update().ID)
			s.mu.Unlock()

			if !ok {
				return next(c)
			}

			if t.prev != nil {
				<-t.prev
			}

			defer func() {
				close(t.done)
				s.mu.Lock()
				if s.tails[t.chatID] == t.done {
					delete(s.tails, t.chatID)
				}
				s.mu.Unlock()
			}()

			return next(c)
		}
	}
}
