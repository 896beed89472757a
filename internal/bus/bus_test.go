package bus

import (
	"sync"
	"sync/atomic"
	"testing"
)

type ping struct{ n int }

func (ping) Topic() Topic { return "test.ping" }

type pong struct{}

func (pong) Topic() Topic { return "test.pong" }

func TestSubscribeDeliversMatchingTopic(t *testing.T) {
	b := New()
	var got []int
	b.Subscribe("test.ping", func(e Event) {
		got = append(got, e.(ping).n)
	})

	b.Publish(ping{n: 1})
	b.Publish(pong{})
	b.Publish(ping{n: 2})

	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("got %v, want [1 2]", got)
	}
}

func TestMultipleSubscribers(t *testing.T) {
	b := New()
	var a, c int
	b.Subscribe("test.ping", func(Event) { a++ })
	b.Subscribe("test.ping", func(Event) { c++ })
	b.Publish(ping{})
	if a != 1 || c != 1 {
		t.Errorf("deliveries: got %d and %d, want 1 and 1", a, c)
	}
}

func TestCancelRemovesSubscriber(t *testing.T) {
	b := New()
	n := 0
	cancel := b.Subscribe("test.ping", func(Event) { n++ })
	b.Publish(ping{})
	cancel()
	b.Publish(ping{})
	if n != 1 {
		t.Errorf("deliveries after cancel: got %d, want 1", n)
	}
}

func TestSubscribeAllSeesEveryTopic(t *testing.T) {
	b := New()
	n := 0
	b.SubscribeAll(func(Event) { n++ })
	b.Publish(ping{})
	b.Publish(pong{})
	if n != 2 {
		t.Errorf("got %d, want 2", n)
	}
}

func TestHandlerPanicDoesNotStopDelivery(t *testing.T) {
	b := New()
	reached := false
	b.Subscribe("test.ping", func(Event) { panic("boom") })
	b.Subscribe("test.ping", func(Event) { reached = true })
	b.Publish(ping{})
	if !reached {
		t.Error("second subscriber should still receive the event")
	}
}

func TestHandlerMayPublish(t *testing.T) {
	b := New()
	pongs := 0
	b.Subscribe("test.ping", func(Event) { b.Publish(pong{}) })
	b.Subscribe("test.pong", func(Event) { pongs++ })
	b.Publish(ping{})
	if pongs != 1 {
		t.Errorf("pongs: got %d, want 1", pongs)
	}
}

func TestBufferFlushPreservesOrder(t *testing.T) {
	var q Buffer
	q.Publish(ping{n: 1})
	q.Publish(ping{n: 2})
	q.Publish(pong{})

	var rec Recorder
	if n := q.Flush(&rec); n != 3 {
		t.Fatalf("flushed: got %d, want 3", n)
	}
	evs := rec.Events()
	if evs[0].(ping).n != 1 || evs[1].(ping).n != 2 {
		t.Errorf("order: got %v", evs)
	}
	if q.Len() != 0 {
		t.Errorf("buffer should be empty after flush, got %d", q.Len())
	}
}

func TestConcurrentPublish(t *testing.T) {
	b := New()
	var n int64
	b.Subscribe("test.ping", func(Event) { atomic.AddInt64(&n, 1) })

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Publish(ping{})
		}()
	}
	wg.Wait()

	if n != 50 {
		t.Errorf("got %d, want 50", n)
	}
}

func TestNilBusPublishIsNoop(t *testing.T) {
	var b *Bus
	b.Publish(ping{})
}
