package engine

import (
	"sync"

	"github.com/semantiva/semantiva-go/internal/pipeline"
)

// Transport hands payloads between nodes. The default in-memory transport
// is FIFO per channel and needs no serialization; remote implementations
// plug in behind the same two methods.
type Transport interface {
	Publish(channel string, payload pipeline.Payload) error
	Receive(channel string) (pipeline.Payload, bool)
}

// InMemoryTransport is the default in-process FIFO hand-off.
type InMemoryTransport struct {
	mu       sync.Mutex
	channels map[string][]pipeline.Payload
}

// NewInMemoryTransport returns an empty transport.
func NewInMemoryTransport() *InMemoryTransport {
	return &InMemoryTransport{channels: make(map[string][]pipeline.Payload)}
}

// Publish appends the payload to the channel queue.
func (t *InMemoryTransport) Publish(channel string, payload pipeline.Payload) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.channels[channel] = append(t.channels[channel], payload)
	return nil
}

// Receive pops the oldest payload from the channel queue.
func (t *InMemoryTransport) Receive(channel string) (pipeline.Payload, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	queue := t.channels[channel]
	if len(queue) == 0 {
		return pipeline.Payload{}, false
	}
	payload := queue[0]
	t.channels[channel] = queue[1:]
	return payload, true
}
