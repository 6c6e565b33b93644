package session

import (
	"testing"
	"time"
)

func TestAudioQueueFIFO(t *testing.T) {
	q := NewAudioQueue()
	q.Push([]byte{1})
	q.Push([]byte{2})
	q.Push([]byte{3})

	for i := byte(1); i <= 3; i++ {
		p, ok := q.Pop()
		if !ok || p[0] != i {
			t.Fatalf("pop %d: got %v, %v", i, p, ok)
		}
	}
	if q.Len() != 0 {
		t.Errorf("Len = %d after drain", q.Len())
	}
}

func TestAudioQueuePopBlocksUntilPush(t *testing.T) {
	q := NewAudioQueue()
	got := make(chan []byte, 1)
	go func() {
		p, _ := q.Pop()
		got <- p
	}()

	time.Sleep(20 * time.Millisecond)
	q.Push([]byte{7})

	select {
	case p := <-got:
		if p[0] != 7 {
			t.Fatalf("got %v", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Pop never woke up")
	}
}

func TestAudioQueueCloseDrainsThenStops(t *testing.T) {
	q := NewAudioQueue()
	q.Push([]byte{1})
	q.Close()
	q.Close()         // idempotent
	q.Push([]byte{2}) // dropped after close

	if p, ok := q.Pop(); !ok || p[0] != 1 {
		t.Fatalf("remaining payload lost: %v, %v", p, ok)
	}
	if _, ok := q.Pop(); ok {
		t.Fatal("Pop returned a payload from a closed empty queue")
	}
}

func TestAudioQueueCloseWakesBlockedConsumer(t *testing.T) {
	q := NewAudioQueue()
	done := make(chan bool, 1)
	go func() {
		_, ok := q.Pop()
		done <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	q.Close()

	select {
	case ok := <-done:
		if ok {
			t.Fatal("expected ok=false from closed queue")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("blocked consumer never woke up on Close")
	}
}
