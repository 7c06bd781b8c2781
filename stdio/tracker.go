package stdio

import "sync"

// Tracker holds the in-flight request count together with the
// input-closed flag. The pair decides when the server may exit: input
// has closed and nothing is in flight. The condition is re-checked
// after every End and immediately on CloseInput.
type Tracker struct {
	mu       sync.Mutex
	inflight int
	closed   bool
	done     chan struct{}
}

func NewTracker() *Tracker {
	return &Tracker{done: make(chan struct{})}
}

// Begin records a request entering dispatch. It must be called before
// the dispatch goroutine starts.
func (t *Tracker) Begin() {
	t.mu.Lock()
	t.inflight++
	t.mu.Unlock()
}

// End records a request finishing, after its response (if any) has
// been written.
func (t *Tracker) End() {
	t.mu.Lock()
	t.inflight--
	t.check()
	t.mu.Unlock()
}

// CloseInput marks that no further requests can arrive.
func (t *Tracker) CloseInput() {
	t.mu.Lock()
	t.closed = true
	t.check()
	t.mu.Unlock()
}

// Done is closed once input has closed and the in-flight count has
// dropped to zero.
func (t *Tracker) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until Done fires.
func (t *Tracker) Wait() {
	<-t.done
}

// InFlight reports the current number of open requests.
func (t *Tracker) InFlight() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inflight
}

// check must be called with mu held.
func (t *Tracker) check() {
	if !t.closed || t.inflight != 0 {
		return
	}
	select {
	case <-t.done:
	default:
		close(t.done)
	}
}
