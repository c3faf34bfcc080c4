// Package feed is the in-process change-notification stream for the
// persistent store. The store publishes an event after every successful
// write; subscribers get either an event-kind-opaque "table changed"
// ping (they must re-fetch to learn what changed) or the typed
// new-message stream used for desktop notifications.
package feed

import (
	"log"
	"sync"

	"support-inbox/internal/adapter"
	rows "support-inbox/internal/models"
	"support-inbox/pkg/models"
)

type EventKind string

const (
	KindInsert EventKind = "insert"
	KindUpdate EventKind = "update"
	KindDelete EventKind = "delete"
)

// Event is a single row-level change. Row carries the written row model
// for streams that decode it; table subscribers never see it.
type Event struct {
	Table string
	Kind  EventKind
	Row   any
}

type tableSub struct {
	table string
	fn    func()
}

type messageSub struct {
	onInsert func(models.Message)
	onError  func(error)
}

// Bus fans change events out to subscribers. All callbacks fire on the
// single dispatch goroutine: no concurrent invocations for any
// subscription.
type Bus struct {
	mu          sync.Mutex
	events      chan Event
	done        chan struct{}
	closeOnce   sync.Once
	nextID      int
	tableSubs   map[int]tableSub
	messageSubs map[int]messageSub
}

func NewBus() *Bus {
	return &Bus{
		events:      make(chan Event, 64),
		done:        make(chan struct{}),
		tableSubs:   make(map[int]tableSub),
		messageSubs: make(map[int]messageSub),
	}
}

// Run dispatches events until Close is called. Call in a goroutine.
func (b *Bus) Run() {
	for {
		select {
		case event := <-b.events:
			b.dispatch(event)
		case <-b.done:
			return
		}
	}
}

func (b *Bus) Close() {
	b.closeOnce.Do(func() {
		close(b.done)
	})
}

// Publish enqueues an event. Drops the event if the queue is full rather
// than blocking a store write; subscribers always re-fetch so a dropped
// ping is recovered by the next one.
func (b *Bus) Publish(event Event) {
	select {
	case b.events <- event:
	case <-b.done:
	default:
		log.Printf("feed: dropping %s event for table %s (queue full)", event.Kind, event.Table)
	}
}

// SubscribeTable registers fn to run once per change on table. The event
// kind is not exposed; callers re-fetch. The returned unsubscribe func is
// idempotent.
func (b *Bus) SubscribeTable(table string, fn func()) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.tableSubs[id] = tableSub{table: table, fn: fn}
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.tableSubs, id)
			b.mu.Unlock()
		})
	}
}

// SubscribeNewMessages delivers message inserts pre-decoded into the
// application entity. Decode failures invoke onError and the
// subscription keeps delivering subsequent events.
func (b *Bus) SubscribeNewMessages(onInsert func(models.Message), onError func(error)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.messageSubs[id] = messageSub{onInsert: onInsert, onError: onError}
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.messageSubs, id)
			b.mu.Unlock()
		})
	}
}

func (b *Bus) dispatch(event Event) {
	b.mu.Lock()
	tableSubs := make([]tableSub, 0, len(b.tableSubs))
	for _, sub := range b.tableSubs {
		if sub.table == event.Table {
			tableSubs = append(tableSubs, sub)
		}
	}
	var messageSubs []messageSub
	if event.Table == (rows.Message{}).TableName() && event.Kind == KindInsert {
		messageSubs = make([]messageSub, 0, len(b.messageSubs))
		for _, sub := range b.messageSubs {
			messageSubs = append(messageSubs, sub)
		}
	}
	b.mu.Unlock()

	for _, sub := range tableSubs {
		sub.fn()
	}
	if len(messageSubs) == 0 {
		return
	}

	row, ok := event.Row.(rows.Message)
	if !ok {
		log.Printf("feed: message insert event carried no row payload")
		return
	}
	message, err := adapter.RowToMessage(row)
	for _, sub := range messageSubs {
		if err != nil {
			if sub.onError != nil {
				sub.onError(err)
			}
			continue
		}
		sub.onInsert(message)
	}
}
