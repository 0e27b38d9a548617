package changefeed

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Table names a row store the feed can observe
type Table string

const (
	TableMessages     Table = "messages"
	TableTypingStatus Table = "typing_status"
	TablePresence     Table = "presence"
	TableReactions    Table = "reactions"
	TableParticipants Table = "conversation_participants"
)

// EventKind is the kind of row mutation
type EventKind uint8

const (
	EventInsert EventKind = 1 << iota
	EventUpdate
	EventDelete

	// EventAll matches every mutation kind
	EventAll = EventInsert | EventUpdate | EventDelete
)

// Event is a dirty signal for a filtered view. It carries row keys only,
// never row content: delivery is at-least-once and unordered, so consumers
// must re-query the source of truth rather than apply deltas.
type Event struct {
	Table          Table
	Kind           EventKind
	ConversationID int64
	UserID         int64
	RowID          int64
	OccurredAt     time.Time
}

// Filter is a row predicate applied before delivery
type Filter func(Event) bool

// ForConversation matches events scoped to one conversation
func ForConversation(conversationID int64) Filter {
	return func(e Event) bool {
		return e.ConversationID == conversationID
	}
}

// Subscription is a live feed handle. Events are delivered on a dedicated
// goroutine; a slow consumer only loses signals, never blocks publishers.
type Subscription struct {
	table    Table
	mask     EventKind
	filter   Filter
	handler  func(Event)
	ch       chan Event
	done     chan struct{}
	closeOne sync.Once
	broker   *Broker
}

// Unsubscribe detaches the subscription and stops its delivery goroutine.
// Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.broker.remove(s)
	s.closeOne.Do(func() {
		close(s.done)
	})
}

func (s *Subscription) matches(e Event) bool {
	if s.table != "" && s.table != e.Table {
		return false
	}
	if s.mask&e.Kind == 0 {
		return false
	}
	if s.filter != nil && !s.filter(e) {
		return false
	}
	return true
}

func (s *Subscription) run() {
	for {
		select {
		case e := <-s.ch:
			s.handler(e)
		case <-s.done:
			return
		}
	}
}

// Broker is the in-process change-feed: writers publish row mutations after
// a successful storage write, subscribers receive matching dirty signals.
type Broker struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	logger zerolog.Logger
}

// NewBroker creates a change-feed broker
func NewBroker(logger zerolog.Logger) *Broker {
	return &Broker{
		subs:   make(map[*Subscription]struct{}),
		logger: logger,
	}
}

// Subscribe registers a handler for matching row mutations. An empty table
// matches every table; the filter may be nil.
func (b *Broker) Subscribe(table Table, filter Filter, mask EventKind, handler func(Event)) *Subscription {
	sub := &Subscription{
		table:   table,
		mask:    mask,
		filter:  filter,
		handler: handler,
		ch:      make(chan Event, 16),
		done:    make(chan struct{}),
		broker:  b,
	}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	go sub.run()
	return sub
}

// Publish fans an event out to every matching subscription. Delivery is
// best-effort: a subscriber with a full buffer is skipped, which is
// acceptable because events are signals, not state.
func (b *Broker) Publish(e Event) {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs {
		if !sub.matches(e) {
			continue
		}
		select {
		case sub.ch <- e:
		default:
			b.logger.Warn().
				Str("table", string(e.Table)).
				Int64("conversationID", e.ConversationID).
				Msg("Skipped slow change-feed subscriber")
		}
	}
}

func (b *Broker) remove(sub *Subscription) {
	b.mu.Lock()
	delete(b.subs, sub)
	b.mu.Unlock()
}
