package live

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collection struct {
	mu    sync.Mutex
	items []string
	err   error
}

func (c *collection) set(items ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = items
}

func (c *collection) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

func (c *collection) load(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	return append([]string{}, c.items...), nil
}

func receive(t *testing.T, ch <-chan []string) []string {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		t.Fatalf("no snapshot delivered")
		return nil
	}
}

func TestSubscribe_DeliversInitialAndPublishedSnapshots(t *testing.T) {
	h := NewHub(nil)
	defer h.Close()

	c := &collection{}
	c.set("a")

	got := make(chan []string, 10)
	unsubscribe := Subscribe(context.Background(), h, TopicOrders, c.load, func(items []string) {
		got <- items
	})
	defer unsubscribe()

	assert.Equal(t, []string{"a"}, receive(t, got))

	c.set("b", "a")
	h.Publish(TopicOrders)
	assert.Equal(t, []string{"b", "a"}, receive(t, got))
}

func TestSubscribe_EmptyCollectionIsEmptySlice(t *testing.T) {
	h := NewHub(nil)
	defer h.Close()

	got := make(chan []string, 1)
	unsubscribe := Subscribe(context.Background(), h, TopicOrders, (&collection{}).load, func(items []string) {
		got <- items
	})
	defer unsubscribe()

	items := receive(t, got)
	require.NotNil(t, items)
	assert.Empty(t, items)
}

func TestSubscribe_LoadErrorDeliversEmpty(t *testing.T) {
	h := NewHub(nil)
	defer h.Close()

	c := &collection{}
	c.set("a")

	got := make(chan []string, 10)
	unsubscribe := Subscribe(context.Background(), h, TopicNotifications, c.load, func(items []string) {
		got <- items
	})
	defer unsubscribe()

	assert.Equal(t, []string{"a"}, receive(t, got))

	c.fail(errors.New("connection refused"))
	h.Publish(TopicNotifications)

	items := receive(t, got)
	require.NotNil(t, items)
	assert.Empty(t, items)
}

func TestSubscribe_MultipleSubscribersReceiveChange(t *testing.T) {
	h := NewHub(nil)
	defer h.Close()

	c := &collection{}
	first := make(chan []string, 10)
	second := make(chan []string, 10)

	unsubFirst := Subscribe(context.Background(), h, TopicOrders, c.load, func(items []string) { first <- items })
	defer unsubFirst()
	unsubSecond := Subscribe(context.Background(), h, TopicOrders, c.load, func(items []string) { second <- items })
	defer unsubSecond()

	receive(t, first)
	receive(t, second)

	c.set("new-order")
	h.Publish(TopicOrders)

	assert.Equal(t, []string{"new-order"}, receive(t, first))
	assert.Equal(t, []string{"new-order"}, receive(t, second))
}

func TestSubscribe_OtherTopicIsNotDelivered(t *testing.T) {
	h := NewHub(nil)
	defer h.Close()

	got := make(chan []string, 10)
	unsubscribe := Subscribe(context.Background(), h, TopicOrders, (&collection{}).load, func(items []string) { got <- items })
	defer unsubscribe()
	receive(t, got)

	h.Publish(TopicNotifications)

	select {
	case <-got:
		t.Fatalf("unexpected delivery for another topic")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribe_StopsDeliveryAndIsIdempotent(t *testing.T) {
	h := NewHub(nil)
	defer h.Close()

	var calls atomic.Int32
	got := make(chan []string, 10)
	unsubscribe := Subscribe(context.Background(), h, TopicOrders, (&collection{}).load, func(items []string) {
		calls.Add(1)
		got <- items
	})
	receive(t, got)

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 0, h.Subscribers(TopicOrders))

	h.Publish(TopicOrders)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSubscribe_ContextCancelReleasesWatch(t *testing.T) {
	h := NewHub(nil)
	defer h.Close()

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan []string, 10)
	Subscribe(ctx, h, TopicOrders, (&collection{}).load, func(items []string) { got <- items })
	receive(t, got)

	cancel()
	require.Eventually(t, func() bool { return h.Subscribers(TopicOrders) == 0 }, time.Second, 5*time.Millisecond)
}

func TestMailbox_KeepsLatest(t *testing.T) {
	m := NewMailbox[int]()
	m.Put(1)
	m.Put(2)
	m.Put(3)

	assert.Equal(t, 3, <-m.C())
	select {
	case v := <-m.C():
		t.Fatalf("unexpected extra value %d", v)
	default:
	}
}
