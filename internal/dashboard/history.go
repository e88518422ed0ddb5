package dashboard

import "github.com/rileyhilliard/v2dash/internal/api"

// DefaultHistorySize is the number of samples kept per gauge.
const DefaultHistorySize = 60

// History keeps recent gauge samples for the header sparklines. It is only
// touched from Update, so it needs no locking.
type History struct {
	cpu, memory, disk *ringBuffer
}

// ringBuffer is a fixed-size circular buffer for float64 values.
type ringBuffer struct {
	data  []float64
	head  int
	count int
}

func newRingBuffer(size int) *ringBuffer {
	return &ringBuffer{data: make([]float64, size)}
}

func (r *ringBuffer) push(v float64) {
	r.data[r.head] = v
	r.head = (r.head + 1) % len(r.data)
	if r.count < len(r.data) {
		r.count++
	}
}

// last returns up to n of the newest values, oldest first.
func (r *ringBuffer) last(n int) []float64 {
	if n > r.count {
		n = r.count
	}
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	start := (r.head - n + len(r.data)) % len(r.data)
	for i := 0; i < n; i++ {
		out[i] = r.data[(start+i)%len(r.data)]
	}
	return out
}

// NewHistory creates a history holding size samples per gauge.
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{
		cpu:    newRingBuffer(size),
		memory: newRingBuffer(size),
		disk:   newRingBuffer(size),
	}
}

// Push records one applied stats sample.
func (h *History) Push(s *api.SystemStats) {
	if s == nil {
		return
	}
	h.cpu.push(s.CPU.Percent)
	h.memory.push(s.Memory.Percent)
	h.disk.push(s.Disk.Percent)
}

// Series returns the newest n samples of the gauge labelled label
// ("CPU", "Memory" or "Disk").
func (h *History) Series(label string, n int) []float64 {
	switch label {
	case "CPU":
		return h.cpu.last(n)
	case "Memory":
		return h.memory.last(n)
	case "Disk":
		return h.disk.last(n)
	default:
		return nil
	}
}
