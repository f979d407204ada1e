// Package memory provides an in-process StateMirror for configurations
// without Redis and for tests.
package memory

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/alanyoungcy/arbdeck/internal/domain"
)

// Mirror implements domain.StateMirror over an in-process map. It gives the
// engine the same contract as the Redis mirror, minus surviving a process
// restart.
type Mirror struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMirror creates an empty Mirror.
func NewMirror() *Mirror {
	return &Mirror{data: make(map[string][]byte)}
}

// Load unmarshals the stored value for key into out.
func (m *Mirror) Load(_ context.Context, key string, out any) error {
	m.mu.RLock()
	raw, ok := m.data[key]
	m.mu.RUnlock()
	if !ok {
		return domain.ErrNotFound
	}
	return json.Unmarshal(raw, out)
}

// Save stores v under key, replacing any previous value.
func (m *Mirror) Save(_ context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data[key] = raw
	m.mu.Unlock()
	return nil
}

var _ domain.StateMirror = (*Mirror)(nil)
