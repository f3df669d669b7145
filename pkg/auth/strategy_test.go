package auth

import (
	"context"
	"errors"
	"sync"

	"github.com/entrhq/shopeeweb/pkg/browser"
	"github.com/entrhq/shopeeweb/pkg/config"
	"github.com/entrhq/shopeeweb/pkg/types"
)

// fakeHost records what strategies do to their client.
type fakeHost struct {
	mu       sync.Mutex
	opts     config.Options
	launch   browser.LaunchOptions
	state    []byte
	stateErr error
	events   []*types.ClientEvent

	// onEmit runs after an event is recorded, as a client handler would
	onEmit func(*types.ClientEvent)
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		opts:  config.Default(),
		state: []byte(`{"cookies":[{"name":"SPC_EC","value":"abc"}],"origins":[]}`),
	}
}

func (h *fakeHost) Options() config.Options { return h.opts }

func (h *fakeHost) LaunchOptions() *browser.LaunchOptions { return &h.launch }

func (h *fakeHost) StorageState(ctx context.Context) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stateErr != nil {
		return nil, h.stateErr
	}
	return h.state, nil
}

func (h *fakeHost) Emit(event *types.ClientEvent) {
	h.mu.Lock()
	h.events = append(h.events, event)
	onEmit := h.onEmit
	h.mu.Unlock()

	if onEmit != nil {
		onEmit(event)
	}
}

func (h *fakeHost) eventTypes() []types.ClientEventType {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]types.ClientEventType, 0, len(h.events))
	for _, e := range h.events {
		out = append(out, e.Type)
	}
	return out
}

// failingStore fails every operation.
type failingStore struct{ err error }

func (s failingStore) SessionExists(ctx context.Context, name string) (bool, error) {
	return false, s.err
}
func (s failingStore) Load(ctx context.Context, name string) ([]byte, error) { return nil, s.err }
func (s failingStore) Save(ctx context.Context, name string, data []byte) error {
	return s.err
}
func (s failingStore) Delete(ctx context.Context, name string) error { return s.err }

var errStoreDown = errors.New("store down")
