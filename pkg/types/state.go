package types

// LifecycleState is the client's position in the authentication sequence.
type LifecycleState string

const (
	StateIdle                        LifecycleState = "IDLE"
	StateInitializing                LifecycleState = "INITIALIZING"
	StateAwaitingChallengeResolution LifecycleState = "AWAITING_CHALLENGE_RESOLUTION"
	StateResuming                    LifecycleState = "RESUMING"
	StateAuthenticated               LifecycleState = "AUTHENTICATED"
	StateReady                       LifecycleState = "READY"
	StateAuthFailure                 LifecycleState = "AUTH_FAILURE"
	StateDisconnected                LifecycleState = "DISCONNECTED"
)

// IsTerminal reports whether the state is absorbing.
func (s LifecycleState) IsTerminal() bool {
	return s == StateAuthFailure || s == StateDisconnected
}

// ChallengeState is the outcome of racing the authenticated and challenge UI markers.
type ChallengeState int

const (
	ChallengeUnresolved ChallengeState = iota
	ChallengeNeeded
	ChallengeAlreadyAuthenticated
	ChallengeObservationError
)

func (c ChallengeState) String() string {
	switch c {
	case ChallengeNeeded:
		return "needs_challenge"
	case ChallengeAlreadyAuthenticated:
		return "already_authenticated"
	case ChallengeObservationError:
		return "observation_error"
	default:
		return "unresolved"
	}
}

// AppState is the remote application's own runtime state.
// The empty value means the state could not be resolved.
type AppState string

const (
	AppStateUnknown    AppState = ""
	AppStateConnected  AppState = "CONNECTED"
	AppStateOpening    AppState = "OPENING"
	AppStatePairing    AppState = "PAIRING"
	AppStateUnpaired   AppState = "UNPAIRED"
	AppStateUnlaunched AppState = "UNLAUNCHED"
	AppStateConflict   AppState = "CONFLICT"
	AppStateTimeout    AppState = "TIMEOUT"
)
