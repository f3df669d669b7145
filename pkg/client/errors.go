package client

import (
	"errors"

	"github.com/entrhq/shopeeweb/pkg/observer"
)

var (
	// ErrSetup wraps failures while preparing the session: strategy hooks
	// before and after browser start, browser acquisition and the initial
	// navigation.
	ErrSetup = errors.New("client: setup failed")

	// ErrObservation wraps failures to read the login page. It is the
	// observer package's sentinel so errors.Is matches either way.
	ErrObservation = observer.ErrObservation

	// ErrNotReady is returned by operations that need a ready session.
	ErrNotReady = errors.New("client: session is not ready")

	// ErrAlreadyInitialized is returned by a second Initialize call.
	ErrAlreadyInitialized = errors.New("client: already initialized")
)
