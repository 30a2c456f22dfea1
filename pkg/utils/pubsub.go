package utils

import (
	"github.com/sasha-s/go-deadlock"
)

const SUBSCRIBER_BUFFER = 16

// Topic fans values out to every subscriber. Publishing never blocks: a
// subscriber that is not keeping up misses values.
type Topic[T any] struct {
	subscribers map[chan T]struct{}
	mutex       deadlock.Mutex
}

func NewTopic[T any]() *Topic[T] {
	return &Topic[T]{
		subscribers: make(map[chan T]struct{}),
	}
}

// Publish returns the number of subscribers the value was delivered to.
func (t *Topic[T]) Publish(value T) int {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	delivered := 0
	for subscriber := range t.subscribers {
		select {
		case subscriber <- value:
			delivered++
		default:
		}
	}
	return delivered
}

type Subscriber[T any] struct {
	channel chan T
	topic   *Topic[T]
}

func (t *Topic[T]) Subscribe() *Subscriber[T] {
	channel := make(chan T, SUBSCRIBER_BUFFER)
	t.mutex.Lock()
	t.subscribers[channel] = struct{}{}
	t.mutex.Unlock()

	return &Subscriber[T]{channel, t}
}

func (t *Subscriber[T]) Recv() <-chan T {
	return t.channel
}

// Done unsubscribes and closes the channel returned by Recv.
func (t *Subscriber[T]) Done() {
	topic := t.topic
	topic.mutex.Lock()
	defer topic.mutex.Unlock()

	if _, ok := topic.subscribers[t.channel]; !ok {
		return
	}
	delete(topic.subscribers, t.channel)
	close(t.channel)
}
