// Package live поддерживает подписки на коллекции и доставку актуальных снимков подписчикам.
package live

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Topic идентифицирует наблюдаемую коллекцию.
type Topic string

const (
	TopicOrders        Topic = "orders"
	TopicNotifications Topic = "notifications"
)

// LoadFunc загружает полный упорядоченный снимок коллекции.
type LoadFunc[T any] func(ctx context.Context) ([]T, error)

// Hub хранит активные подписки и оповещает их об изменениях коллекций.
type Hub struct {
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	nextID uint64
	subs   map[Topic]map[uint64]*subscriber
	wg     sync.WaitGroup
}

type subscriber struct {
	id      uint64
	topic   Topic
	signal  chan struct{}
	cancel  context.CancelFunc
	once    sync.Once
	refresh func(ctx context.Context)
}

// NewHub создаёт пустой хаб подписок.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		subs:   make(map[Topic]map[uint64]*subscriber),
	}
}

// Subscribe устанавливает постоянное наблюдение за коллекцией topic.
// Первый снимок доставляется сразу, следующие после каждого Publish(topic).
// Ошибка загрузки превращается в пустой снимок. Доставка для одного подписчика
// последовательна, пропущенные сигналы схлопываются в одну перезагрузку.
// Возвращаемая функция отписки идемпотентна.
func Subscribe[T any](ctx context.Context, h *Hub, topic Topic, load LoadFunc[T], deliver func([]T)) (unsubscribe func()) {
	subCtx, cancel := context.WithCancel(h.ctx)
	sub := &subscriber{
		topic:  topic,
		signal: make(chan struct{}, 1),
		cancel: cancel,
	}
	sub.refresh = func(ctx context.Context) {
		items, err := load(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			h.logger.Warn("subscription load failed",
				zap.String("topic", string(topic)), zap.Error(err))
			items = nil
		}
		if items == nil {
			items = []T{}
		}
		if ctx.Err() != nil {
			return
		}
		deliver(items)
	}

	h.mu.Lock()
	h.nextID++
	sub.id = h.nextID
	if h.subs[topic] == nil {
		h.subs[topic] = make(map[uint64]*subscriber)
	}
	h.subs[topic][sub.id] = sub
	h.wg.Add(1)
	h.mu.Unlock()

	select {
	case sub.signal <- struct{}{}:
	default:
	}

	go func() {
		defer h.wg.Done()
		for {
			select {
			case <-subCtx.Done():
				return
			case <-ctx.Done():
				h.remove(sub)
				return
			case <-sub.signal:
				sub.refresh(subCtx)
			}
		}
	}()

	return func() { h.remove(sub) }
}

func (h *Hub) remove(sub *subscriber) {
	sub.once.Do(func() {
		h.mu.Lock()
		delete(h.subs[sub.topic], sub.id)
		h.mu.Unlock()
		sub.cancel()
	})
}

// Publish сообщает подписчикам topic о том, что коллекция изменилась.
func (h *Hub) Publish(topic Topic) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, sub := range h.subs[topic] {
		select {
		case sub.signal <- struct{}{}:
		default:
		}
	}
}

// Subscribers возвращает число активных подписок на topic.
func (h *Hub) Subscribers(topic Topic) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[topic])
}

// Close отменяет все подписки и дожидается завершения их горутин.
func (h *Hub) Close() {
	h.cancel()
	h.mu.Lock()
	h.subs = make(map[Topic]map[uint64]*subscriber)
	h.mu.Unlock()
	h.wg.Wait()
}
