package client

import "sync"

// qrQueue buffers QR payloads between the page callback and the state
// machine loop. push never blocks, so the browser's event dispatcher keeps
// running while the loop is busy tearing the browser down.
type qrQueue struct {
	mu     sync.Mutex
	items  []string
	closed bool
	notify chan struct{}
}

func newQRQueue() *qrQueue {
	return &qrQueue{notify: make(chan struct{}, 1)}
}

func (q *qrQueue) push(qr string) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items, qr)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// ready is signalled at least once after each push.
func (q *qrQueue) ready() <-chan struct{} {
	return q.notify
}

// drain returns the queued payloads in arrival order.
func (q *qrQueue) drain() []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := q.items
	q.items = nil
	return items
}

// close discards queued payloads and ignores later pushes.
func (q *qrQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.items = nil
}
