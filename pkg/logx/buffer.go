package logx

import "sync"

// ringBuffer keeps the last max entries.
type ringBuffer struct {
	mu      sync.Mutex
	entries []LogEntry
	max     int
}

func newRingBuffer(size int) *ringBuffer {
	return &ringBuffer{max: size, entries: make([]LogEntry, 0, size)}
}

func (b *ringBuffer) add(e LogEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(b.entries, e)
	if len(b.entries) > b.max {
		b.entries = b.entries[len(b.entries)-b.max:]
	}
}

func (b *ringBuffer) snapshot(level Level) []LogEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]LogEntry, 0, len(b.entries))
	for i := range b.entries {
		if level != "" && b.entries[i].Level != string(level) {
			continue
		}
		out = append(out, b.entries[i])
	}
	return out
}

func (b *ringBuffer) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = b.entries[:0]
}
