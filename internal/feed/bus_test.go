package feed

import (
	"testing"
	"time"

	rows "support-inbox/internal/models"
	apperrors "support-inbox/pkg/errors"
	"support-inbox/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRunningBus(t *testing.T) *Bus {
	t.Helper()
	bus := NewBus()
	go bus.Run()
	t.Cleanup(bus.Close)
	return bus
}

func waitFor[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		panic("unreachable")
	}
}

func TestSubscribeTableDelivers(t *testing.T) {
	bus := newRunningBus(t)

	pings := make(chan struct{}, 4)
	bus.SubscribeTable("messages", func() { pings <- struct{}{} })

	bus.Publish(Event{Table: "messages", Kind: KindInsert, Row: rows.Message{}})
	waitFor(t, pings)

	// Other tables do not leak through.
	bus.Publish(Event{Table: "customers", Kind: KindUpdate})
	bus.Publish(Event{Table: "messages", Kind: KindDelete})
	waitFor(t, pings)
	select {
	case <-pings:
		t.Fatal("received ping for a table we did not subscribe to")
	default:
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	bus := newRunningBus(t)

	pings := make(chan struct{}, 4)
	unsubscribe := bus.SubscribeTable("messages", func() { pings <- struct{}{} })
	unsubscribe()
	unsubscribe() // second call must be a no-op

	bus.Publish(Event{Table: "messages", Kind: KindInsert})
	time.Sleep(50 * time.Millisecond)
	select {
	case <-pings:
		t.Fatal("received ping after unsubscribe")
	default:
	}
}

func TestSubscribeNewMessagesDecodes(t *testing.T) {
	bus := newRunningBus(t)

	inserted := make(chan models.Message, 1)
	bus.SubscribeNewMessages(
		func(m models.Message) { inserted <- m },
		func(err error) { t.Errorf("unexpected decode error: %v", err) },
	)

	row := rows.Message{
		ID:         "m1",
		CustomerID: "c1",
		Channel:    "email",
		Content:    "hello",
		Timestamp:  time.Now(),
	}
	bus.Publish(Event{Table: "messages", Kind: KindInsert, Row: row})

	message := waitFor(t, inserted)
	assert.Equal(t, "m1", message.ID)
	assert.Equal(t, models.ChannelEmail, message.Channel)
}

func TestNewMessageStreamSurvivesDecodeError(t *testing.T) {
	bus := newRunningBus(t)

	inserted := make(chan models.Message, 2)
	decodeErrs := make(chan error, 2)
	bus.SubscribeNewMessages(
		func(m models.Message) { inserted <- m },
		func(err error) { decodeErrs <- err },
	)

	// Malformed event: unknown channel tag.
	bus.Publish(Event{Table: "messages", Kind: KindInsert, Row: rows.Message{
		ID: "bad", CustomerID: "c1", Channel: "smoke-signal", Content: "hi",
	}})
	err := waitFor(t, decodeErrs)
	require.Equal(t, apperrors.ErrCodeDecode, apperrors.CodeOf(err))

	// The subscription keeps delivering subsequent events.
	bus.Publish(Event{Table: "messages", Kind: KindInsert, Row: rows.Message{
		ID: "good", CustomerID: "c1", Channel: "whatsapp", Content: "hi",
	}})
	message := waitFor(t, inserted)
	assert.Equal(t, "good", message.ID)
}

func TestUpdatesDoNotHitNewMessageStream(t *testing.T) {
	bus := newRunningBus(t)

	inserted := make(chan models.Message, 1)
	bus.SubscribeNewMessages(
		func(m models.Message) { inserted <- m },
		nil,
	)

	bus.Publish(Event{Table: "messages", Kind: KindUpdate, Row: rows.Message{
		ID: "m1", CustomerID: "c1", Channel: "email", Content: "hi",
	}})
	time.Sleep(50 * time.Millisecond)
	select {
	case <-inserted:
		t.Fatal("update event delivered to insert-only stream")
	default:
	}
}
