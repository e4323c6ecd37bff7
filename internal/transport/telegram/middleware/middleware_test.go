package middleware

import (
	"sync"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"
)

type fakeSeqCtx struct {
	tele.Context
	update tele.Update
}

func (c *fakeSeqCtx) Update() tele.Update { return c.update }

func chatUpdate(id int, chatID int64) *tele.Update {
	return &tele.Update{
		ID:      id,
		Message: &tele.Message{Chat: &tele.Chat{ID: chatID}},
	}
}

// Сообщения одного чата обрабатываются строго в порядке выдачи билетов,
// даже когда горутина второго сообщения добирается до обработчика первой.
func TestSequencerKeepsArrivalOrder(t *testing.T) {
	s := NewSequencer()

	first := chatUpdate(1, 42)
	second := chatUpdate(2, 42)
	s.enqueue(first)
	s.enqueue(second)

	var mu sync.Mutex
	var order []int
	wrapped := s.Middleware()(func(c tele.Context) error {
		mu.Lock()
		order = append(order, c.Update().ID)
		mu.Unlock()
		return nil
	})

	secondDone := make(chan struct{})
	go func() {
		_ = wrapped(&fakeSeqCtx{update: *second})
		close(secondDone)
	}()

	// второе сообщение стоит в очереди, пока первое не обработано
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	if len(order) != 0 {
		mu.Unlock()
		t.Fatalf("second message processed before first: order = %v", order)
	}
	mu.Unlock()

	if err := wrapped(&fakeSeqCtx{update: *first}); err != nil {
		t.Fatal(err)
	}
	<-secondDone

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("order = %v, want [1 2]", order)
	}
}

// Очереди разных чатов независимы: второй чат не ждет первый.
func TestSequencerIndependentChats(t *testing.T) {
	s := NewSequencer()

	first := chatUpdate(1, 42)
	other := chatUpdate(2, 43)
	s.enqueue(first)
	s.enqueue(other)

	wrapped := s.Middleware()(func(c tele.Context) error { return nil })

	done := make(chan struct{})
	go func() {
		_ = wrapped(&fakeSeqCtx{update: *other})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("chat 43 is blocked by the queue of chat 42")
	}

	if err := wrapped(&fakeSeqCtx{update: *first}); err != nil {
		t.Fatal(err)
	}
}

func TestSequencerReleasesStateAfterProcessing(t *testing.T) {
	s := NewSequencer()

	u := chatUpdate(1, 42)
	s.enqueue(u)

	wrapped := s.Middleware()(func(c tele.Context) error { return nil })
	if err := wrapped(&fakeSeqCtx{update: *u}); err != nil {
		t.Fatal(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.tickets) != 0 {
		t.Errorf("tickets left = %d, want 0", len(s.tickets))
	}
	if len(s.tails) != 0 {
		t.Errorf("tails left = %d, want 0", len(s.tails))
	}
}

// Апдейты без сообщения (и апдейты без билета) проходят без ожидания.
func TestSequencerPassesUntrackedUpdates(t *testing.T) {
	s := NewSequencer()

	if !s.enqueue(&tele.Update{ID: 9}) {
		t.Error("non-message update rejected by poller filter")
	}

	called := false
	wrapped := s.Middleware()(func(c tele.Context) error {
		called = true
		return nil
	})

	if err := wrapped(&fakeSeqCtx{update: tele.Update{ID: 9}}); err != nil {
		t.Fatal(err)
	}
	if !called {
		t.Error("handler was not called for untracked update")
	}
}
