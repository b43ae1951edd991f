package telemetry

import "sync"

// ring кольцевой буфер последних N значений
type ring struct {
	mu     sync.Mutex
	values []float64
	next   int
	full   bool
}

func newRing(size int) *ring {
	return &ring{values: make([]float64, size)}
}

func (r *ring) add(v float64) {
	r.mu.Lock()
	r.values[r.next] = v
	r.next = (r.next + 1) % len(r.values)
	if r.next == 0 {
		r.full = true
	}
	r.mu.Unlock()
}

// snapshot значения от старых к новым
func (r *ring) snapshot() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.full {
		return append([]float64(nil), r.values[:r.next]...)
	}
	out := make([]float64, 0, len(r.values))
	out = append(out, r.values[r.next:]...)
	out = append(out, r.values[:r.next]...)
	return out
}
