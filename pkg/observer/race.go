package observer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/entrhq/shopeeweb/pkg/types"
)

// WaitFunc blocks until a page marker is present or ctx ends.
type WaitFunc func(ctx context.Context) error

type raceResult struct {
	state types.ChallengeState
	err   error
}

// Race runs both waits concurrently and reports the state of the first to
// settle. The loser's context is cancelled and its result is drained in the
// background and logged, never returned.
//
// If the first wait to settle failed, Race returns ChallengeObservationError
// with an error wrapping ErrObservation. A timeout of zero disables the
// budget; ctx still bounds the race.
func Race(ctx context.Context, timeout time.Duration, waitAuthenticated, waitChallenge WaitFunc) (types.ChallengeState, error) {
	var (
		raceCtx context.Context
		cancel  context.CancelFunc
	)
	if timeout > 0 {
		raceCtx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		raceCtx, cancel = context.WithCancel(ctx)
	}

	// Buffered so the loser never blocks after the race is decided
	results := make(chan raceResult, 2)
	run := func(state types.ChallengeState, wait WaitFunc) {
		go func() {
			results <- raceResult{state: state, err: wait(raceCtx)}
		}()
	}
	run(types.ChallengeAlreadyAuthenticated, waitAuthenticated)
	run(types.ChallengeNeeded, waitChallenge)

	first := <-results
	cancel()

	go func() {
		loser := <-results
		if loser.err != nil && !errors.Is(loser.err, context.Canceled) {
			debugLog.Debugf("Discarded %s wait failed after race was decided: %v", loser.state, loser.err)
			return
		}
		debugLog.Debugf("Discarded %s wait settled after race was decided", loser.state)
	}()

	if first.err != nil {
		if errors.Is(first.err, context.DeadlineExceeded) && ctx.Err() == nil {
			return types.ChallengeObservationError, fmt.Errorf("%w: %w within %s", ErrObservation, ErrUndecided, timeout)
		}
		return types.ChallengeObservationError, fmt.Errorf("%w: waiting for %s marker: %w", ErrObservation, first.state, first.err)
	}

	debugLog.Debugf("Challenge race decided: %s", first.state)
	return first.state, nil
}
