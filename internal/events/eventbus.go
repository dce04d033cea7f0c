package events

import (
	"sync"
	"sync/atomic"
)

// Publisher 事件发布者
type Publisher interface {
	Publish(event Event)
}

// Event 事件接口
type Event interface {
	Type() EventType
}

// EventHandler 事件处理器
type EventHandler func(event Event)

// SubscriptionID 订阅标识，用于取消订阅
type SubscriptionID uint64

type subscriber struct {
	id      SubscriptionID
	handler EventHandler
}

// Bus 事件总线，负责组件间异步通信。处理器在独立的 goroutine 中执行，
// 因此发布者不会被慢速订阅者阻塞。
type Bus struct {
	subscribers map[EventType][]subscriber
	mu          sync.RWMutex
	nextID      atomic.Uint64
	wg          sync.WaitGroup
}

func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[EventType][]subscriber),
	}
}

// Publish 发布事件
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	subs := b.subscribers[event.Type()]
	handlers := make([]EventHandler, len(subs))
	for i, sub := range subs {
		handlers[i] = sub.handler
	}
	b.mu.RUnlock()

	for _, handler := range handlers {
		b.wg.Add(1)
		go func(h EventHandler) {
			defer b.wg.Done()
			h(event)
		}(handler)
	}
}

// Subscribe 订阅事件，返回的 ID 用于 Unsubscribe
func (b *Bus) Subscribe(eventType EventType, handler EventHandler) SubscriptionID {
	id := SubscriptionID(b.nextID.Add(1))

	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], subscriber{id: id, handler: handler})
	return id
}

// Unsubscribe 取消订阅，未知的 ID 会被忽略
func (b *Bus) Unsubscribe(eventType EventType, id SubscriptionID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subscribers[eventType]
	for i, sub := range subs {
		if sub.id != id {
			continue
		}
		rest := make([]subscriber, 0, len(subs)-1)
		rest = append(rest, subs[:i]...)
		rest = append(rest, subs[i+1:]...)
		if len(rest) == 0 {
			delete(b.subscribers, eventType)
		} else {
			b.subscribers[eventType] = rest
		}
		return
	}
}

// Wait 等待所有已派发的处理器执行完毕
func (b *Bus) Wait() {
	b.wg.Wait()
}
