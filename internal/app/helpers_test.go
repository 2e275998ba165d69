package app

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/dkeye/QuickRoom/internal/core"
	"github.com/stretchr/testify/require"
)

var errQueueFull = errors.New("queue full")

// recorder is an in-memory SignalConnection that keeps every frame it accepts.
type recorder struct {
	mu     sync.Mutex
	frames []map[string]any
	full   bool
	closed int
}

func (r *recorder) TrySend(f core.Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.full {
		return errQueueFull
	}
	var m map[string]any
	if err := json.Unmarshal(f, &m); err != nil {
		return err
	}
	r.frames = append(r.frames, m)
	return nil
}

func (r *recorder) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed++
}

func (r *recorder) take() []map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.frames
	r.frames = nil
	return out
}

func (r *recorder) closeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func types(frames []map[string]any) []string {
	out := make([]string, 0, len(frames))
	for _, f := range frames {
		out = append(out, f["type"].(string))
	}
	return out
}

func users(t *testing.T, frame map[string]any) []map[string]any {
	t.Helper()
	require.Equal(t, "user_list", frame["type"])
	raw, ok := frame["users"].([]any)
	require.True(t, ok)
	out := make([]map[string]any, 0, len(raw))
	for _, u := range raw {
		out = append(out, u.(map[string]any))
	}
	return out
}
