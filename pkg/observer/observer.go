// Package observer reports what the remote login page is showing.
//
// The Observer interface is the narrow view the authentication state machine
// has of the page: which of the mutually exclusive login screens is up, QR
// payload rotations, and the markers for a resolved challenge and a ready
// application runtime. PageObserver implements it over a Playwright page;
// tests substitute their own implementation.
package observer

import (
	"context"
	"errors"
	"time"

	"github.com/entrhq/shopeeweb/pkg/logging"
	"github.com/entrhq/shopeeweb/pkg/types"
)

var (
	// ErrObservation wraps any failure to decide which login screen the page shows.
	ErrObservation = errors.New("observer: observation failed")

	// ErrUndecided is returned when neither screen appeared within the time budget.
	ErrUndecided = errors.New("observer: neither authenticated nor challenge marker appeared")
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("observer")
	if err != nil {
		debugLog.Warnf("Failed to initialize observer logger, using stderr fallback: %v", err)
	}
}

// Observer reports the remote page's login state.
type Observer interface {
	// ObserveChallengeState races the authenticated and challenge markers and
	// returns whichever settles first. A zero timeout waits without bound.
	ObserveChallengeState(ctx context.Context, timeout time.Duration) (types.ChallengeState, error)

	// SubscribeQRChanges registers onChange for every QR payload the page
	// shows, starting with the current one, in the order the page rotates them.
	SubscribeQRChanges(ctx context.Context, onChange func(qr string)) error

	// WaitForChallengeResolved blocks until the challenge screen gives way to
	// the authenticated one. Cancelling ctx ends the wait with a nil error.
	WaitForChallengeResolved(ctx context.Context) error

	// WaitForSessionReady blocks until the application runtime is available.
	WaitForSessionReady(ctx context.Context) error

	// ObserveNavigationAway registers onNavigate for main frame navigations.
	ObserveNavigationAway(onNavigate func())

	// AppState returns the application's runtime state, AppStateUnknown when
	// it cannot be resolved.
	AppState(ctx context.Context) (types.AppState, error)

	// Logout asks the page to invalidate its own session.
	Logout(ctx context.Context) error

	// TakeOver reclaims a session another browser has opened.
	TakeOver(ctx context.Context) error
}
