package gateway

import (
	"strings"
	"sync"
)

// NoticeKind classifies a user-facing notice
type NoticeKind string

const (
	NoticeHTTP         NoticeKind = "http"
	NoticeNetwork      NoticeKind = "network"
	NoticeValidation   NoticeKind = "validation"
	NoticeTokenExpired NoticeKind = "token_expired"
	NoticeSuccess      NoticeKind = "success"
)

// NetworkErrorMessage is surfaced when the payment API cannot be reached
const NetworkErrorMessage = "Network Error"

// Notice is one message for the notification surface of a page
type Notice struct {
	Kind    NoticeKind
	Message string
}

// IsError returns true for every kind except success
func (n Notice) IsError() bool {
	return n.Kind != NoticeSuccess
}

// Notifier receives user-facing notices
type Notifier interface {
	Notify(n Notice)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(n Notice)

// Notify calls f(n)
func (f NotifierFunc) Notify(n Notice) { f(n) }

// Notices is a Notifier that buffers notices for one page render. It is safe
// for concurrent use.
type Notices struct {
	mu    sync.Mutex
	items []Notice
}

// Notify appends a notice
func (b *Notices) Notify(n Notice) {
	if strings.TrimSpace(n.Message) == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(b.items, n)
}

// Items returns a copy of the buffered notices
func (b *Notices) Items() []Notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Notice(nil), b.items...)
}

// Has returns true if a notice of the given kind was buffered
func (b *Notices) Has(kind NoticeKind) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, n := range b.items {
		if n.Kind == kind {
			return true
		}
	}
	return false
}

// Last returns the most recent notice, if any
func (b *Notices) Last() (Notice, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.items) == 0 {
		return Notice{}, false
	}
	return b.items[len(b.items)-1], true
}

func notify(n Notifier, notice Notice) {
	if n != nil {
		n.Notify(notice)
	}
}
