package client

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/entrhq/shopeeweb/pkg/auth"
	"github.com/entrhq/shopeeweb/pkg/browser"
	"github.com/entrhq/shopeeweb/pkg/config"
	"github.com/entrhq/shopeeweb/pkg/types"
)

type fakeLauncher struct {
	mu         sync.Mutex
	acquireErr error
	acquired   int
	released   int
	lastOpts   browser.LaunchOptions
}

func (l *fakeLauncher) Acquire(ctx context.Context, opts browser.LaunchOptions) (*browser.Handle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.acquireErr != nil {
		return nil, l.acquireErr
	}
	l.acquired++
	l.lastOpts = opts
	return &browser.Handle{}, nil
}

func (l *fakeLauncher) Release(ctx context.Context, h *browser.Handle) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.released++
	return nil
}

func (l *fakeLauncher) releases() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.released
}

// fakeDriver scripts what the login page shows.
type fakeDriver struct {
	mu sync.Mutex

	// observe overrides the challenge race when set
	observe      func(ctx context.Context, timeout time.Duration) (types.ChallengeState, error)
	challenge    types.ChallengeState
	challengeErr error

	// qrs are delivered synchronously when the client subscribes
	qrs []string
	// resolve is closed to report the QR scan; nil blocks until teardown
	resolve    chan struct{}
	resolveErr error

	readyErr    error
	navigateErr error
	appState    types.AppState
	storage     []byte

	push       func(string)
	onNavigate func()
	navigated  []string
	loggedOut  int
	tookOver   int
}

func (d *fakeDriver) Navigate(ctx context.Context, url, referer string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.navigated = append(d.navigated, url)
	return d.navigateErr
}

func (d *fakeDriver) StorageState(ctx context.Context) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.storage, nil
}

func (d *fakeDriver) ObserveChallengeState(ctx context.Context, timeout time.Duration) (types.ChallengeState, error) {
	if d.observe != nil {
		return d.observe(ctx, timeout)
	}
	if d.challengeErr != nil {
		return types.ChallengeObservationError, d.challengeErr
	}
	return d.challenge, nil
}

func (d *fakeDriver) SubscribeQRChanges(ctx context.Context, onChange func(qr string)) error {
	d.mu.Lock()
	d.push = onChange
	qrs := d.qrs
	d.mu.Unlock()

	for _, qr := range qrs {
		onChange(qr)
	}
	return nil
}

// rotate delivers a QR code after subscription, as a page rotation would.
func (d *fakeDriver) rotate(qr string) {
	d.mu.Lock()
	push := d.push
	d.mu.Unlock()
	push(qr)
}

func (d *fakeDriver) WaitForChallengeResolved(ctx context.Context) error {
	d.mu.Lock()
	resolve := d.resolve
	d.mu.Unlock()

	select {
	case <-resolve:
		return d.resolveErr
	case <-ctx.Done():
		return nil
	}
}

func (d *fakeDriver) WaitForSessionReady(ctx context.Context) error {
	return d.readyErr
}

func (d *fakeDriver) ObserveNavigationAway(onNavigate func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onNavigate = onNavigate
}

// navigate simulates a main frame navigation.
func (d *fakeDriver) navigate() {
	d.mu.Lock()
	onNavigate := d.onNavigate
	d.mu.Unlock()
	go onNavigate()
}

func (d *fakeDriver) setAppState(state types.AppState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.appState = state
}

func (d *fakeDriver) AppState(ctx context.Context) (types.AppState, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.appState, nil
}

func (d *fakeDriver) Logout(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.loggedOut++
	return nil
}

func (d *fakeDriver) TakeOver(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tookOver++
	return nil
}

func (d *fakeDriver) takeovers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tookOver
}

// fakeStrategy counts hook calls and returns scripted results.
type fakeStrategy struct {
	auth.BaseStrategy

	mu           sync.Mutex
	beforeErr    error
	afterErr     error
	neededResult auth.AuthNeededResult
	payload      any
	calls        map[string]int
}

func newFakeStrategy() *fakeStrategy {
	return &fakeStrategy{payload: "session-payload", calls: make(map[string]int)}
}

func (s *fakeStrategy) record(hook string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[hook]++
}

func (s *fakeStrategy) count(hook string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[hook]
}

func (s *fakeStrategy) BeforeBrowserInitialized(ctx context.Context) error {
	s.record("before")
	return s.beforeErr
}

func (s *fakeStrategy) AfterBrowserInitialized(ctx context.Context) error {
	s.record("after")
	return s.afterErr
}

func (s *fakeStrategy) OnAuthenticationNeeded(ctx context.Context) (auth.AuthNeededResult, error) {
	s.record("needed")
	return s.neededResult, nil
}

func (s *fakeStrategy) GetAuthEventPayload(ctx context.Context) (any, error) {
	s.record("payload")
	return s.payload, nil
}

func (s *fakeStrategy) AfterAuthReady(ctx context.Context) error {
	s.record("ready")
	return nil
}

func (s *fakeStrategy) Disconnect(ctx context.Context) error {
	s.record("disconnect")
	return nil
}

func (s *fakeStrategy) Logout(ctx context.Context) error {
	s.record("logout")
	return nil
}

func (s *fakeStrategy) Destroy(ctx context.Context) error {
	s.record("destroy")
	return nil
}

// recorder collects emitted events.
type recorder struct {
	mu     sync.Mutex
	events []*types.ClientEvent
}

func (r *recorder) handle(e *types.ClientEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) kinds() []types.ClientEventType {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]types.ClientEventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func (r *recorder) qrs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []string
	for _, e := range r.events {
		if e.Type == types.EventTypeQR {
			out = append(out, e.QR)
		}
	}
	return out
}

func (r *recorder) last() *types.ClientEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.events) == 0 {
		return nil
	}
	return r.events[len(r.events)-1]
}

type harness struct {
	client   *Client
	launcher *fakeLauncher
	driver   *fakeDriver
	strategy *fakeStrategy
	events   *recorder
}

func newHarness(t *testing.T, driver *fakeDriver, mutate func(*config.Options)) *harness {
	opts := config.Default()
	if mutate != nil {
		mutate(&opts)
	}

	h := &harness{
		launcher: &fakeLauncher{},
		driver:   driver,
		strategy: newFakeStrategy(),
		events:   &recorder{},
	}

	c, err := New(opts,
		WithStrategy(h.strategy),
		WithLauncher(h.launcher),
		WithDriverFactory(func(*browser.Handle) Driver { return driver }),
	)
	require.NoError(t, err)
	c.OnAny(h.events.handle)
	h.client = c
	return h
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
