// Package auth defines how a client persists its session between runs.
//
// A Strategy is bound to one client and called at fixed points of the
// authentication sequence:
//
//  1. Setup, once when the client is constructed
//  2. BeforeBrowserInitialized, to stage persisted session data into the launch options
//  3. AfterBrowserInitialized, once a page exists but before navigation
//  4. OnAuthenticationNeeded, only when the page shows a QR challenge
//  5. GetAuthEventPayload, when the page reports a signed-in session
//  6. AfterAuthReady, after the ready event (fire and forget)
//
// Logout, Disconnect and Destroy are called by the client's own lifecycle
// operations. Three strategies ship with the package: NoAuth keeps nothing,
// LocalAuth keeps a browser profile directory on disk and RemoteAuth keeps
// the browser storage state in a SessionStore such as Redis.
package auth

import (
	"context"

	"github.com/entrhq/shopeeweb/pkg/browser"
	"github.com/entrhq/shopeeweb/pkg/config"
	"github.com/entrhq/shopeeweb/pkg/logging"
	"github.com/entrhq/shopeeweb/pkg/types"
)

// InvalidSessionMessage is the auth_failure payload used when a persisted
// session could not be resumed and the strategy requires a valid one.
const InvalidSessionMessage = "Unable to log in. Are the session details valid?"

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("auth")
	if err != nil {
		debugLog.Warnf("Failed to initialize auth logger, using stderr fallback: %v", err)
	}
}

// Host is the part of a client a strategy may use.
type Host interface {
	// Options returns the client's configuration
	Options() config.Options

	// LaunchOptions returns the browser launch options, which strategies may
	// modify before the browser starts
	LaunchOptions() *browser.LaunchOptions

	// StorageState exports the browser's cookies and local storage as JSON
	StorageState(ctx context.Context) ([]byte, error)

	// Emit delivers an event to the client's listeners
	Emit(event *types.ClientEvent)
}

// AuthNeededResult is returned by OnAuthenticationNeeded.
type AuthNeededResult struct {
	// Failed stops the attempt: the client emits auth_failure and tears down
	Failed bool

	// FailureEventPayload is carried by the auth_failure event
	FailureEventPayload any
}

// Strategy persists and restores a client's session.
type Strategy interface {
	Setup(host Host)
	BeforeBrowserInitialized(ctx context.Context) error
	AfterBrowserInitialized(ctx context.Context) error
	OnAuthenticationNeeded(ctx context.Context) (AuthNeededResult, error)
	GetAuthEventPayload(ctx context.Context) (any, error)
	AfterAuthReady(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Logout(ctx context.Context) error
	Destroy(ctx context.Context) error
}

// SessionInfo is the authenticated payload reported by the bundled strategies.
type SessionInfo struct {
	Strategy string `json:"strategy"`
	ClientID string `json:"client_id,omitempty"`
	Location string `json:"location,omitempty"`
}

// BaseStrategy provides no-op hooks. Strategies embed it and override what they need.
type BaseStrategy struct {
	host Host
}

// Setup implements Strategy.
func (b *BaseStrategy) Setup(host Host) {
	b.host = host
}

// Host returns the bound client, nil before Setup.
func (b *BaseStrategy) Host() Host {
	return b.host
}

// BeforeBrowserInitialized implements Strategy.
func (b *BaseStrategy) BeforeBrowserInitialized(ctx context.Context) error { return nil }

// AfterBrowserInitialized implements Strategy.
func (b *BaseStrategy) AfterBrowserInitialized(ctx context.Context) error { return nil }

// OnAuthenticationNeeded implements Strategy.
func (b *BaseStrategy) OnAuthenticationNeeded(ctx context.Context) (AuthNeededResult, error) {
	return AuthNeededResult{}, nil
}

// GetAuthEventPayload implements Strategy.
func (b *BaseStrategy) GetAuthEventPayload(ctx context.Context) (any, error) { return nil, nil }

// AfterAuthReady implements Strategy.
func (b *BaseStrategy) AfterAuthReady(ctx context.Context) error { return nil }

// Disconnect implements Strategy.
func (b *BaseStrategy) Disconnect(ctx context.Context) error { return nil }

// Logout implements Strategy.
func (b *BaseStrategy) Logout(ctx context.Context) error { return nil }

// Destroy implements Strategy.
func (b *BaseStrategy) Destroy(ctx context.Context) error { return nil }

// NoAuth keeps nothing between runs. Every start shows a QR challenge.
type NoAuth struct {
	BaseStrategy
}

// NewNoAuth creates a NoAuth strategy.
func NewNoAuth() *NoAuth {
	return &NoAuth{}
}

// GetAuthEventPayload implements Strategy.
func (n *NoAuth) GetAuthEventPayload(ctx context.Context) (any, error) {
	return SessionInfo{Strategy: config.StrategyNone}, nil
}

var (
	_ Strategy = (*NoAuth)(nil)
	_ Strategy = (*LocalAuth)(nil)
	_ Strategy = (*RemoteAuth)(nil)
)
