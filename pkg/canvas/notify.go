package canvas

import (
	"fmt"
	"sync"
)

// Level classifies a notification.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Notification is a user-visible message raised by a controller.
type Notification struct {
	Level   Level
	Message string
}

// Notifier receives notifications. Implementations must be safe for use from
// several goroutines.
type Notifier interface {
	Notify(Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

type nopNotifier struct{}

func (nopNotifier) Notify(Notification) {}

// Queue buffers notifications until the host drains them.
type Queue struct {
	mu    sync.Mutex
	items []Notification
}

// Notify appends n.
func (q *Queue) Notify(n Notification) {
	q.mu.Lock()
	q.items = append(q.items, n)
	q.mu.Unlock()
}

// Drain returns and clears the buffered notifications.
func (q *Queue) Drain() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out
}

func notifyf(n Notifier, level Level, format string, args ...any) {
	n.Notify(Notification{Level: level, Message: fmt.Sprintf(format, args...)})
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
