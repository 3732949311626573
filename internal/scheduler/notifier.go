package scheduler

import "sync"

// notifier is a broadcast signal: every waiter holding the channel returned
// by wait is released by the next broadcast.
type notifier struct {
	mu sync.Mutex
	ch chan struct{}
}

func newNotifier() *notifier {
	return &notifier{ch: make(chan struct{})}
}

// wait returns a channel closed by the next broadcast.
func (n *notifier) wait() <-chan struct{} {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.ch
}

// broadcast releases all current waiters.
func (n *notifier) broadcast() {
	n.mu.Lock()
	defer n.mu.Unlock()

	close(n.ch)
	n.ch = make(chan struct{})
}
