package engine

import (
	"bytes"
	"strings"
	"sync"
)

const defaultBacklogLines = 5000

// Backlog is an io.Writer that keeps the last capacity lines written to it.
// The TUI uses it as the render sink instead of stderr.
type Backlog struct {
	mu       sync.Mutex
	lines    []string
	capacity int
	head     int
	count    int
	partial  []byte
	written  uint64

	ch     chan struct{}
	closed bool
}

func NewBacklog(capacity int) *Backlog {
	if capacity <= 0 {
		capacity = defaultBacklogLines
	}
	return &Backlog{
		lines:    make([]string, capacity),
		capacity: capacity,
		ch:       make(chan struct{}, 1),
	}
}

// Write stores every complete line in p. A trailing fragment is held until
// its newline arrives.
func (b *Backlog) Write(p []byte) (int, error) {
	if b == nil {
		return len(p), nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return len(p), nil
	}
	b.written += uint64(len(p))

	data := p
	for {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			b.partial = append(b.partial, data...)
			break
		}
		line := data[:i]
		if len(b.partial) > 0 {
			line = append(b.partial, line...)
			b.partial = nil
		}
		b.push(string(line))
		data = data[i+1:]
	}

	select {
	case b.ch <- struct{}{}:
	default:
	}
	return len(p), nil
}

func (b *Backlog) push(line string) {
	b.lines[b.head] = line
	b.head = (b.head + 1) % b.capacity
	if b.count < b.capacity {
		b.count++
	}
}

// ReadAll returns the stored lines, oldest first, each newline terminated.
func (b *Backlog) ReadAll() string {
	if b == nil {
		return ""
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 {
		return ""
	}

	start := 0
	if b.count >= b.capacity {
		start = b.head
	}

	var sb strings.Builder
	for i := 0; i < b.count; i++ {
		sb.WriteString(b.lines[(start+i)%b.capacity])
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Len returns the number of stored lines.
func (b *Backlog) Len() int {
	if b == nil {
		return 0
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Written returns the total number of bytes ever written.
func (b *Backlog) Written() uint64 {
	if b == nil {
		return 0
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.written
}

// Chan receives a value whenever new output arrived since the last receive.
// It is closed by Close.
func (b *Backlog) Chan() <-chan struct{} {
	if b == nil {
		return nil
	}
	return b.ch
}

func (b *Backlog) Close() {
	if b == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	close(b.ch)
}
