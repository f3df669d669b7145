package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/entrhq/shopeeweb/pkg/types"
)

// outcome is how an Initialize attempt ended when it did not fail outright.
type outcome int

const (
	outcomeReady outcome = iota
	outcomeAuthFailure
	outcomeDisconnected
	outcomeTornDown

	// outcomeResolved is internal to the challenge loop: the QR code was
	// scanned and the attempt continues with resuming the session.
	outcomeResolved
)

func (o outcome) String() string {
	switch o {
	case outcomeReady:
		return "ready"
	case outcomeAuthFailure:
		return "auth_failure"
	case outcomeDisconnected:
		return "disconnected"
	case outcomeTornDown:
		return "torn_down"
	case outcomeResolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// run drives one authentication attempt. Handled terminal states come back
// as an outcome; only setup and observation faults come back as errors.
func (c *Client) run(ctx context.Context) (outcome, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(c.lifeCtx, cancel)
	defer stop()

	c.transition(types.StateInitializing)

	if err := c.strategy.BeforeBrowserInitialized(runCtx); err != nil {
		return c.fault(ctx, fmt.Errorf("%w: before browser initialized: %w", ErrSetup, err))
	}

	handle, err := c.launcher.Acquire(runCtx, c.launch)
	if err != nil {
		return c.fault(ctx, fmt.Errorf("%w: acquiring browser: %w", ErrSetup, err))
	}
	recordBrowserAcquired()

	c.mu.Lock()
	c.handle = handle
	c.driver = c.newDriver(handle)
	driver := c.driver
	c.mu.Unlock()

	// Destroy may have run while the browser was starting and found nothing to release
	if c.tornDown() {
		if err := c.releaseBrowser(context.Background()); err != nil {
			debugLog.Warnf("Failed to release browser acquired during teardown: %v", err)
		}
		return outcomeTornDown, nil
	}

	if err := c.strategy.AfterBrowserInitialized(runCtx); err != nil {
		return c.fault(ctx, fmt.Errorf("%w: after browser initialized: %w", ErrSetup, err))
	}

	debugLog.Infof("Navigating to %s", c.opts.URL)
	if err := driver.Navigate(runCtx, c.opts.URL, c.opts.Referer); err != nil {
		return c.fault(ctx, fmt.Errorf("%w: %w", ErrSetup, err))
	}

	challenge, err := driver.ObserveChallengeState(runCtx, c.opts.AuthTimeout)
	if err != nil {
		if !errors.Is(err, ErrObservation) {
			err = fmt.Errorf("%w: %w", ErrObservation, err)
		}
		return c.fault(ctx, err)
	}
	debugLog.Infof("Login page shows %s", challenge)

	switch challenge {
	case types.ChallengeAlreadyAuthenticated:
	case types.ChallengeNeeded:
		out, err := c.awaitChallenge(runCtx, driver)
		if err != nil {
			return c.fault(ctx, err)
		}
		if out != outcomeResolved {
			return out, nil
		}
	default:
		return c.fault(ctx, fmt.Errorf("%w: undecided challenge state %s", ErrObservation, challenge))
	}

	return c.resume(runCtx, driver)
}

// fault turns err into the attempt's result. A fault caused by teardown is
// not reported, and a cancelled caller context is reported as such.
func (c *Client) fault(ctx context.Context, err error) (outcome, error) {
	if c.tornDown() {
		debugLog.Debugf("Attempt ended by teardown: %v", err)
		return outcomeTornDown, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return 0, ctxErr
	}
	return 0, err
}

// awaitChallenge shows QR codes until one is scanned, the strategy refuses
// the challenge or the retry budget runs out. QR rotations and the
// resolution wait are handled by this one loop, so at most one terminal
// transition fires.
func (c *Client) awaitChallenge(ctx context.Context, driver Driver) (outcome, error) {
	if !c.transition(types.StateAwaitingChallengeResolution) {
		return outcomeTornDown, nil
	}

	result, err := c.strategy.OnAuthenticationNeeded(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: on authentication needed: %w", ErrSetup, err)
	}
	if result.Failed {
		debugLog.Warnf("Auth strategy refused the challenge: %v", result.FailureEventPayload)
		c.terminate(types.StateAuthFailure, types.NewAuthFailureEvent(result.FailureEventPayload))
		return outcomeAuthFailure, nil
	}

	queue := newQRQueue()
	defer queue.close()

	if err := driver.SubscribeQRChanges(ctx, queue.push); err != nil {
		return 0, fmt.Errorf("%w: subscribing to qr changes: %w", ErrObservation, err)
	}

	waitCtx, cancelWait := context.WithCancel(ctx)
	defer cancelWait()

	resolved := make(chan error, 1)
	go func() {
		resolved <- driver.WaitForChallengeResolved(waitCtx)
	}()

	rotations := 0

	// deliver emits queued QR codes. It reports whether the attempt ended,
	// either because the budget ran out or because a handler destroyed the
	// client, and how.
	deliver := func() (outcome, bool) {
		for _, qr := range queue.drain() {
			if c.tornDown() {
				return outcomeTornDown, true
			}
			rotations++
			recordQRRotation()
			c.emit(types.NewQREvent(qr))

			if c.opts.QRMaxRetries > 0 && rotations > c.opts.QRMaxRetries {
				debugLog.Warnf("QR code rotated %d times without a scan, giving up", rotations)
				queue.close()
				cancelWait()
				if !c.terminate(types.StateDisconnected, types.NewDisconnectedEvent(types.ReasonMaxQRRetries)) {
					return outcomeTornDown, true
				}
				return outcomeDisconnected, true
			}
		}
		return 0, false
	}

	for {
		select {
		case <-ctx.Done():
			if c.tornDown() {
				return outcomeTornDown, nil
			}
			return 0, ctx.Err()

		case <-queue.ready():
			if out, ended := deliver(); ended {
				return out, nil
			}

		case err := <-resolved:
			if c.tornDown() {
				return outcomeTornDown, nil
			}
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
			if err != nil {
				return 0, fmt.Errorf("%w: waiting for challenge resolution: %w", ErrObservation, err)
			}
			// Rotations seen before the scan are still reported, in order
			if out, ended := deliver(); ended {
				return out, nil
			}
			debugLog.Infof("Challenge resolved after %d QR codes", rotations)
			return outcomeResolved, nil
		}
	}
}

// resume reports the authenticated session and waits for the application
// runtime.
func (c *Client) resume(ctx context.Context, driver Driver) (outcome, error) {
	if !c.transition(types.StateResuming) {
		return outcomeTornDown, nil
	}

	payload, err := c.strategy.GetAuthEventPayload(ctx)
	if err != nil {
		return c.fault(ctx, fmt.Errorf("client: auth event payload: %w", err))
	}

	if !c.transition(types.StateAuthenticated) {
		return outcomeTornDown, nil
	}
	c.emit(types.NewAuthenticatedEvent(payload))

	if err := driver.WaitForSessionReady(ctx); err != nil {
		return c.fault(ctx, fmt.Errorf("%w: waiting for session ready: %w", ErrObservation, err))
	}

	if !c.transition(types.StateReady) {
		return outcomeTornDown, nil
	}

	driver.ObserveNavigationAway(c.onNavigate)
	c.emit(types.NewReadyEvent())

	go func() {
		if err := c.strategy.AfterAuthReady(c.lifeCtx); err != nil {
			debugLog.Warnf("After auth ready hook failed: %v", err)
		}
	}()

	return outcomeReady, nil
}

// terminate enters a terminal state, emits its event and tears the client
// down. It does nothing if another terminal transition already happened.
func (c *Client) terminate(state types.LifecycleState, event *types.ClientEvent) bool {
	if !c.transition(state) {
		return false
	}
	c.emit(event)

	if err := c.Destroy(context.Background()); err != nil {
		debugLog.Warnf("Teardown after %s failed: %v", state, err)
	}
	return true
}

// transition moves the lifecycle forward. It refuses to leave a terminal
// state or to move at all once the client is torn down.
func (c *Client) transition(to types.LifecycleState) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.IsTerminal() || c.lifeCtx.Err() != nil {
		debugLog.Debugf("Ignoring transition %s -> %s", c.state, to)
		return false
	}

	debugLog.Debugf("Transition %s -> %s", c.state, to)
	c.state = to
	recordTransition(to)
	return true
}

// onNavigate checks the application state after a main frame navigation
// and disconnects when the session is gone.
func (c *Client) onNavigate() {
	if c.tornDown() {
		return
	}

	driver := c.currentDriver()
	if driver == nil {
		return
	}

	state, err := driver.AppState(c.lifeCtx)
	if err != nil {
		if c.tornDown() {
			return
		}
		debugLog.Warnf("Failed to read app state after navigation: %v", err)
		state = types.AppStateUnknown
	}

	if c.setAppState(state) && state != types.AppStateUnknown {
		c.emit(types.NewStateChangedEvent(state))
	}

	switch state {
	case types.AppStateUnknown, types.AppStatePairing:
		if !c.transition(types.StateDisconnected) {
			return
		}
		if err := c.strategy.Disconnect(c.lifeCtx); err != nil {
			debugLog.Warnf("Auth strategy disconnect failed: %v", err)
		}
		c.emit(types.NewDisconnectedEvent(types.ReasonNavigation))
		if err := c.Destroy(context.Background()); err != nil {
			debugLog.Warnf("Teardown after navigation failed: %v", err)
		}

	case types.AppStateConflict:
		if c.opts.TakeoverOnConflict {
			c.takeOver(driver)
		}
	}
}

func (c *Client) takeOver(driver Driver) {
	if c.opts.TakeoverTimeout > 0 {
		timer := time.NewTimer(c.opts.TakeoverTimeout)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-c.lifeCtx.Done():
			return
		}
	}

	debugLog.Infof("Taking over session opened elsewhere")
	if err := driver.TakeOver(c.lifeCtx); err != nil && !c.tornDown() {
		debugLog.Warnf("Takeover failed: %v", err)
	}
}
