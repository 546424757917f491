package settings

import (
	"strings"
	"sync"
)

// ChangeType represents the type of settings change.
type ChangeType int

const (
	// ChangeSet indicates a value was set or updated.
	ChangeSet ChangeType = iota

	// ChangeDelete indicates a value was deleted.
	ChangeDelete

	// ChangeReload indicates a subtree or the whole tree was replaced.
	ChangeReload
)

// String returns the change type name.
func (c ChangeType) String() string {
	switch c {
	case ChangeSet:
		return "set"
	case ChangeDelete:
		return "delete"
	case ChangeReload:
		return "reload"
	default:
		return "unknown"
	}
}

// Change represents a settings change event.
type Change struct {
	// Path is the dot path to the changed setting.
	// Empty for whole-tree reload events.
	Path string

	// Type is the type of change.
	Type ChangeType

	// OldValue is the previous value (may be nil).
	OldValue any

	// NewValue is the new value (nil for deletes).
	NewValue any
}

// Observer is called when settings change. Observers must be non-blocking
// and must not call back into the Store's write methods synchronously.
type Observer func(change Change)

// Subscription represents an active observer subscription.
type Subscription struct {
	id       uint64
	notifier *notifier
}

// Unsubscribe removes this subscription.
func (s *Subscription) Unsubscribe() {
	if s.notifier != nil {
		s.notifier.unsubscribe(s.id)
	}
}

// notifier manages settings change subscriptions.
type notifier struct {
	mu        sync.RWMutex
	observers map[uint64]pathObserver
	nextID    uint64
}

type pathObserver struct {
	prefix   string
	observer Observer
}

func newNotifier() *notifier {
	return &notifier{observers: make(map[uint64]pathObserver)}
}

func (n *notifier) subscribe(prefix string, observer Observer) *Subscription {
	if observer == nil {
		return &Subscription{}
	}

	n.mu.Lock()
	n.nextID++
	id := n.nextID
	n.observers[id] = pathObserver{prefix: prefix, observer: observer}
	n.mu.Unlock()

	return &Subscription{id: id, notifier: n}
}

func (n *notifier) unsubscribe(id uint64) {
	n.mu.Lock()
	delete(n.observers, id)
	n.mu.Unlock()
}

// notify delivers a change to matching observers.
// Observers run outside all store locks; panics are recovered.
func (n *notifier) notify(change Change) {
	n.mu.RLock()
	matched := make([]Observer, 0, len(n.observers))
	for _, po := range n.observers {
		if matchesPrefix(change, po.prefix) {
			matched = append(matched, po.observer)
		}
	}
	n.mu.RUnlock()

	for _, observer := range matched {
		func() {
			defer func() { recover() }()
			observer(change)
		}()
	}
}

// matchesPrefix reports whether a change is visible to a prefix subscription.
// Reload events with no path reach every observer.
func matchesPrefix(change Change, prefix string) bool {
	if prefix == "" || change.Path == "" {
		return true
	}
	return change.Path == prefix || strings.HasPrefix(change.Path, prefix+".")
}
