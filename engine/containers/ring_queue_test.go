package containers

import "testing"

func TestRingQueueEnqueueDequeue(t *testing.T) {
	rq := NewRingQueue[int](3)

	if !rq.IsEmpty() {
		t.Fatalf("expected new queue to be empty")
	}

	for i := 1; i <= 3; i++ {
		if err := rq.Enqueue(i); err != nil {
			t.Fatalf("enqueue %d: unexpected error %v", i, err)
		}
	}

	if !rq.IsFull() {
		t.Fatalf("expected queue to be full after 3 enqueues")
	}
	if err := rq.Enqueue(4); err == nil {
		t.Fatalf("expected error enqueueing into a full queue")
	}

	for i := 1; i <= 3; i++ {
		got, err := rq.Dequeue()
		if err != nil {
			t.Fatalf("dequeue %d: unexpected error %v", i, err)
		}
		if got != i {
			t.Fatalf("expected %d; got %d", i, got)
		}
	}

	if _, err := rq.Dequeue(); err == nil {
		t.Fatalf("expected error dequeueing from an empty queue")
	}
}

func TestRingQueueWraparound(t *testing.T) {
	rq := NewRingQueue[string](2)

	// Cycle through the backing slice several times.
	for round := 0; round < 5; round++ {
		if err := rq.Enqueue("a"); err != nil {
			t.Fatalf("round %d: unexpected error %v", round, err)
		}
		if err := rq.Enqueue("b"); err != nil {
			t.Fatalf("round %d: unexpected error %v", round, err)
		}

		got, _ := rq.Peek()
		if got != "a" {
			t.Fatalf("round %d: expected peek a; got %s", round, got)
		}

		first, _ := rq.Dequeue()
		second, _ := rq.Dequeue()
		if first != "a" || second != "b" {
			t.Fatalf("round %d: expected a, b; got %s, %s", round, first, second)
		}
	}
}

func TestRingQueueCount(t *testing.T) {
	rq := NewRingQueue[float64](4)

	if got := rq.Count(); got != 0 {
		t.Fatalf("expected count 0; got %d", got)
	}
	rq.Enqueue(1.5)
	rq.Enqueue(2.5)
	if got := rq.Count(); got != 2 {
		t.Fatalf("expected count 2; got %d", got)
	}
	rq.Dequeue()
	if got := rq.Count(); got != 1 {
		t.Fatalf("expected count 1; got %d", got)
	}
}
