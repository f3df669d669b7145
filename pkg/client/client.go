// Package client drives a QR code login on a remote web application and
// keeps the resulting browser session.
//
// A Client launches a browser, opens the login page and decides whether a
// persisted session resumed or a QR challenge is needed. Progress is
// reported through events:
//
//	c, err := client.New(config.Default(), client.WithStrategy(auth.NewNoAuth()))
//	if err != nil {
//		return err
//	}
//	c.On(types.EventTypeQR, func(e *types.ClientEvent) { render(e.QR) })
//	c.On(types.EventTypeReady, func(*types.ClientEvent) { close(ready) })
//	if err := c.Initialize(ctx); err != nil {
//		return err
//	}
//	defer c.Destroy(context.Background())
//
// Initialize returns an error only when setup or page observation fails.
// Authentication failures, exhausted QR budgets and remote logouts are
// terminal events after which the client has already torn itself down.
package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/entrhq/shopeeweb/pkg/auth"
	"github.com/entrhq/shopeeweb/pkg/browser"
	"github.com/entrhq/shopeeweb/pkg/config"
	"github.com/entrhq/shopeeweb/pkg/logging"
	"github.com/entrhq/shopeeweb/pkg/types"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("client")
	if err != nil {
		debugLog.Warnf("Failed to initialize client logger, using stderr fallback: %v", err)
	}
}

// Client is one authenticated browser session.
type Client struct {
	opts      config.Options
	strategy  auth.Strategy
	launcher  browser.Launcher
	newDriver DriverFactory
	launch    browser.LaunchOptions
	events    *emitter

	mu          sync.Mutex
	state       types.LifecycleState
	appState    types.AppState
	handle      *browser.Handle
	driver      Driver
	initialized bool

	// lifeCtx is cancelled by Destroy. Every wait in the client observes it,
	// so teardown ends them quietly.
	lifeCtx  context.Context
	teardown context.CancelFunc

	destroyOnce sync.Once
	destroyErr  error
}

// Option is a function that configures a client
type Option func(*Client)

// WithStrategy sets the auth strategy. The default is auth.NoAuth.
func WithStrategy(strategy auth.Strategy) Option {
	return func(c *Client) {
		c.strategy = strategy
	}
}

// WithLauncher sets how the browser is acquired
func WithLauncher(launcher browser.Launcher) Option {
	return func(c *Client) {
		c.launcher = launcher
	}
}

// WithDriverFactory replaces the Playwright page driver
func WithDriverFactory(factory DriverFactory) Option {
	return func(c *Client) {
		c.newDriver = factory
	}
}

// New creates a client. Nothing is launched until Initialize.
func New(opts config.Options, options ...Option) (*Client, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("client: invalid options: %w", err)
	}

	lifeCtx, teardown := context.WithCancel(context.Background())
	c := &Client{
		opts:     opts,
		launch:   launchOptions(opts),
		events:   newEmitter(),
		state:    types.StateIdle,
		lifeCtx:  lifeCtx,
		teardown: teardown,
	}

	for _, option := range options {
		option(c)
	}

	if c.strategy == nil {
		c.strategy = auth.NewNoAuth()
	}
	if c.launcher == nil {
		c.launcher = browser.NewPlaywrightLauncher()
	}
	if c.newDriver == nil {
		c.newDriver = NewPageDriver
	}

	c.strategy.Setup(c)
	return c, nil
}

func launchOptions(opts config.Options) browser.LaunchOptions {
	launch := browser.LaunchOptions{
		Headless:       opts.Browser.Headless,
		Args:           append([]string(nil), opts.Browser.Args...),
		ExecutablePath: opts.Browser.ExecutablePath,
		WSEndpoint:     opts.Browser.WSEndpoint,
		UserDataDir:    opts.Browser.UserDataDir,
		UserAgent:      opts.UserAgent,
		BypassCSP:      opts.BypassCSP,
		Timeout:        float64(opts.Browser.PageTimeout.Milliseconds()),
	}
	if opts.Browser.ViewportWidth > 0 && opts.Browser.ViewportHeight > 0 {
		launch.Viewport = &browser.Viewport{
			Width:  opts.Browser.ViewportWidth,
			Height: opts.Browser.ViewportHeight,
		}
	}
	return launch
}

// On registers handler for events of type eventType and returns a function
// that removes it. Register handlers before calling Initialize; Destroy
// removes them all.
func (c *Client) On(eventType types.ClientEventType, handler Handler) (unsubscribe func()) {
	return c.events.on(eventType, handler)
}

// OnAny registers handler for every event.
func (c *Client) OnAny(handler Handler) (unsubscribe func()) {
	return c.events.on(anyEvent, handler)
}

func (c *Client) emit(event *types.ClientEvent) {
	debugLog.Debugf("Emitting %s", event.Type)
	c.events.emit(event)
}

// Initialize runs the login sequence. It returns once the session is
// ready, a terminal event was emitted or the client was destroyed, and
// fails only with errors wrapping ErrSetup or ErrObservation, or with the
// error of a cancelled ctx.
func (c *Client) Initialize(ctx context.Context) error {
	c.mu.Lock()
	if c.initialized {
		c.mu.Unlock()
		return ErrAlreadyInitialized
	}
	c.initialized = true
	c.mu.Unlock()

	out, err := c.run(ctx)
	if err != nil {
		debugLog.Errorf("Initialize failed: %v", err)
		recordOutcome("error")
		return err
	}

	debugLog.Infof("Initialize finished: %s", out)
	recordOutcome(out.String())
	return nil
}

// Destroy releases the browser, then the auth strategy's resources, and
// removes every event handler. Waits in progress end quietly. Calling it
// more than once returns the first call's result.
func (c *Client) Destroy(ctx context.Context) error {
	c.destroyOnce.Do(func() {
		c.teardown()

		var errs []error
		if err := c.releaseBrowser(ctx); err != nil {
			errs = append(errs, err)
		}
		if err := c.strategy.Destroy(ctx); err != nil {
			errs = append(errs, fmt.Errorf("client: destroying auth strategy: %w", err))
		}
		c.events.clear()

		c.destroyErr = errors.Join(errs...)
		debugLog.Infof("Client destroyed")
	})
	return c.destroyErr
}

// releaseBrowser releases the acquired browser once, whoever calls first.
func (c *Client) releaseBrowser(ctx context.Context) error {
	c.mu.Lock()
	handle := c.handle
	c.handle = nil
	c.mu.Unlock()

	if handle == nil {
		return nil
	}

	recordBrowserReleased()
	if err := c.launcher.Release(ctx, handle); err != nil {
		return fmt.Errorf("client: releasing browser: %w", err)
	}
	return nil
}

// Logout signs the session out on the page, then clears what the auth
// strategy persisted. The client stays up; a resulting navigation is
// reported as a disconnected event.
func (c *Client) Logout(ctx context.Context) error {
	if c.State() != types.StateReady {
		return ErrNotReady
	}

	driver := c.currentDriver()
	if driver == nil {
		return ErrNotReady
	}

	if err := driver.Logout(ctx); err != nil {
		return fmt.Errorf("client: page logout: %w", err)
	}
	if err := c.strategy.Logout(ctx); err != nil {
		return fmt.Errorf("client: auth strategy logout: %w", err)
	}
	return nil
}

// State returns the lifecycle state.
func (c *Client) State() types.LifecycleState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// GetState reads the application's own state from the page.
func (c *Client) GetState(ctx context.Context) (types.AppState, error) {
	driver := c.currentDriver()
	if driver == nil || c.tornDown() {
		return types.AppStateUnknown, ErrNotReady
	}
	return driver.AppState(ctx)
}

func (c *Client) currentDriver() Driver {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.driver
}

// setAppState records state and reports whether it changed.
func (c *Client) setAppState(state types.AppState) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.appState == state {
		return false
	}
	c.appState = state
	return true
}

func (c *Client) tornDown() bool {
	return c.lifeCtx.Err() != nil
}

// Options implements auth.Host.
func (c *Client) Options() config.Options {
	return c.opts
}

// LaunchOptions implements auth.Host.
func (c *Client) LaunchOptions() *browser.LaunchOptions {
	return &c.launch
}

// StorageState implements auth.Host.
func (c *Client) StorageState(ctx context.Context) ([]byte, error) {
	driver := c.currentDriver()
	if driver == nil || c.tornDown() {
		return nil, ErrNotReady
	}
	return driver.StorageState(ctx)
}

// Emit implements auth.Host.
func (c *Client) Emit(event *types.ClientEvent) {
	if c.tornDown() {
		return
	}
	c.emit(event)
}

var _ auth.Host = (*Client)(nil)
