package types

// ClientEventType defines the type of event emitted by the client.
type ClientEventType string

const (
	EventTypeAuthenticated      ClientEventType = "authenticated"        // EventTypeAuthenticated indicates the page accepted the session.
	EventTypeAuthFailure        ClientEventType = "auth_failure"         // EventTypeAuthFailure indicates the auth strategy declared the challenge unusable.
	EventTypeReady              ClientEventType = "ready"                // EventTypeReady indicates the remote application runtime is available.
	EventTypeQR                 ClientEventType = "qr"                   // EventTypeQR carries a new QR challenge payload.
	EventTypeDisconnected       ClientEventType = "disconnected"         // EventTypeDisconnected indicates the client gave up or was logged out remotely.
	EventTypeStateChanged       ClientEventType = "change_state"         // EventTypeStateChanged indicates the remote application state changed.
	EventTypeRemoteSessionSaved ClientEventType = "remote_session_saved" // EventTypeRemoteSessionSaved indicates a remote session backup completed.
)

// Disconnect reasons carried by EventTypeDisconnected.
const (
	ReasonMaxQRRetries = "Max qrcode retries reached"
	ReasonNavigation   = "NAVIGATION"
)

// ClientEvent represents an event emitted by the client during its lifecycle.
type ClientEvent struct {
	// Type indicates the kind of event.
	Type ClientEventType

	// Payload is the strategy-defined value for authenticated and auth_failure events.
	Payload any

	// QR holds the challenge payload for qr events.
	QR string

	// Reason holds the disconnect reason for disconnected events.
	Reason string

	// State holds the new application state for change_state events.
	State AppState
}

// NewAuthenticatedEvent creates an authenticated event.
func NewAuthenticatedEvent(payload any) *ClientEvent {
	return &ClientEvent{
		Type:    EventTypeAuthenticated,
		Payload: payload,
	}
}

// NewAuthFailureEvent creates an auth_failure event.
func NewAuthFailureEvent(payload any) *ClientEvent {
	return &ClientEvent{
		Type:    EventTypeAuthFailure,
		Payload: payload,
	}
}

// NewReadyEvent creates a ready event.
func NewReadyEvent() *ClientEvent {
	return &ClientEvent{Type: EventTypeReady}
}

// NewQREvent creates a qr event.
func NewQREvent(qr string) *ClientEvent {
	return &ClientEvent{
		Type: EventTypeQR,
		QR:   qr,
	}
}

// NewDisconnectedEvent creates a disconnected event.
func NewDisconnectedEvent(reason string) *ClientEvent {
	return &ClientEvent{
		Type:   EventTypeDisconnected,
		Reason: reason,
	}
}

// NewStateChangedEvent creates a change_state event.
func NewStateChangedEvent(state AppState) *ClientEvent {
	return &ClientEvent{
		Type:  EventTypeStateChanged,
		State: state,
	}
}

// NewRemoteSessionSavedEvent creates a remote_session_saved event.
func NewRemoteSessionSavedEvent() *ClientEvent {
	return &ClientEvent{Type: EventTypeRemoteSessionSaved}
}

// IsTerminal reports whether the event ends the client's lifecycle.
func (e *ClientEvent) IsTerminal() bool {
	return e.Type == EventTypeAuthFailure || e.Type == EventTypeDisconnected
}
