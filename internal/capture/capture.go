// Package capture assembles a recording streamed from the kiosk in frames.
package capture

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	ErrTooLarge = errors.New("recording exceeds size limit")
	ErrReleased = errors.New("capture buffer released")
)

// Buffer accumulates audio frames up to a byte limit. Release drops the
// frames and is safe to call from every exit path.
type Buffer struct {
	limit int

	mu       sync.Mutex
	data     []byte
	released bool
	once     sync.Once
}

func NewBuffer(limit int) *Buffer {
	return &Buffer{limit: limit}
}

func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.released {
		return 0, ErrReleased
	}
	if b.limit > 0 && len(b.data)+len(p) > b.limit {
		return 0, fmt.Errorf("%w: %d bytes", ErrTooLarge, b.limit)
	}
	b.data = append(b.data, p...)
	return len(p), nil
}

func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// Take returns the frames written so far and empties the buffer.
func (b *Buffer) Take() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.released {
		return nil, ErrReleased
	}
	out := b.data
	b.data = nil
	return out, nil
}

// Reset discards buffered frames but keeps the buffer usable.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = nil
}

func (b *Buffer) Release() {
	b.once.Do(func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.data = nil
		b.released = true
	})
}

func (b *Buffer) Released() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.released
}

type ControlType string

const (
	ControlStart  ControlType = "start"
	ControlStop   ControlType = "stop"
	ControlCancel ControlType = "cancel"
)

// Control is a text frame sent by the kiosk between binary audio frames.
type Control struct {
	Type      ControlType `json:"type"`
	Language  string      `json:"language,omitempty"`
	SessionID string      `json:"session_id,omitempty"`
	Speak     bool        `json:"speak,omitempty"`
}

func ParseControl(data []byte) (Control, error) {
	var c Control
	if err := json.Unmarshal(data, &c); err != nil {
		return Control{}, fmt.Errorf("decode control frame: %w", err)
	}
	c.Type = ControlType(strings.ToLower(strings.TrimSpace(string(c.Type))))
	switch c.Type {
	case ControlStart, ControlStop, ControlCancel:
		return c, nil
	default:
		return Control{}, fmt.Errorf("unknown control frame %q", c.Type)
	}
}

// Event is sent back to the kiosk over the capture connection.
type Event struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Turn    any    `json:"turn,omitempty"`
}
