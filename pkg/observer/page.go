package observer

import (
	"context"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/shopeeweb/pkg/types"
)

// Selectors locate the login page's screens.
type Selectors struct {
	// IntroImage is present once the account is signed in
	IntroImage string

	// IntroQRCode is present while the page shows a QR challenge
	IntroQRCode string

	// QRContainer carries the current QR code as its CSS background image
	QRContainer string

	// QRRetryButton appears when the page stops rotating codes on its own
	QRRetryButton string
}

// DefaultSelectors matches the Shopee buyer QR login page.
var DefaultSelectors = Selectors{
	IntroImage:    "#main > div > div.vtexOX > div > div > div > div > svg, #main > div > div.vtexOX > div > div > div > div > div.bK3CzO",
	IntroQRCode:   "#main > div > div.vtexOX > div > div > div > div:nth-child(2) > div > div > div.yXry6s > div > div.n1cnI- > div",
	QRContainer:   "#main > div > div.vtexOX > div > div > div > div:nth-child(2) > div > div > div.yXry6s > div > div.n1cnI- > div > div",
	QRRetryButton: "#main > div > div.vtexOX > div > div > div > div:nth-child(2) > div > div > div.yXry6s > div > div.n1cnI- > button",
}

const qrBindingName = "qrChanged"

// qrWatchScript reports the current QR payload and every later rotation, and
// clicks the page's own retry button whenever it shows up.
const qrWatchScript = `(selectors) => {
	const container = document.querySelector(selectors.container);
	if (!container) {
		throw new Error("qr container not found");
	}
	const extract = (style) => {
		const match = /url\("(.*)"/.exec(style || "");
		return match ? match[1] : null;
	};

	const initial = extract(window.getComputedStyle(container).backgroundImage);
	if (initial) {
		window.qrChanged(initial);
	}

	const obs = new MutationObserver((muts) => {
		muts.forEach((mut) => {
			const retry = document.querySelector(selectors.retry);
			if (retry) {
				retry.click();
				return;
			}
			if (mut.type === "attributes" && mut.attributeName === "style") {
				const qr = extract(mut.target.style.backgroundImage);
				if (qr) {
					window.qrChanged(qr);
				}
			}
		});
	});
	obs.observe(container, { attributes: true, attributeFilter: ["style"] });
}`

const (
	appStateScript    = `() => window.Store && window.Store.AppState ? window.Store.AppState.state : null`
	sessionReadyCheck = `window.Store != undefined`
	logoutScript      = `() => window.Store.AppState.logout()`
	takeoverScript    = `() => window.Store.AppState.takeover()`
)

// PageObserver implements Observer over a Playwright page.
type PageObserver struct {
	page      playwright.Page
	selectors Selectors
}

// NewPageObserver creates an observer for page using DefaultSelectors.
func NewPageObserver(page playwright.Page) *PageObserver {
	return NewPageObserverWithSelectors(page, DefaultSelectors)
}

// NewPageObserverWithSelectors creates an observer for page with custom selectors.
func NewPageObserverWithSelectors(page playwright.Page, selectors Selectors) *PageObserver {
	return &PageObserver{
		page:      page,
		selectors: selectors,
	}
}

var _ Observer = (*PageObserver)(nil)

// ObserveChallengeState implements Observer.
func (o *PageObserver) ObserveChallengeState(ctx context.Context, timeout time.Duration) (types.ChallengeState, error) {
	return Race(ctx, timeout,
		o.waitVisible(o.selectors.IntroImage),
		o.waitVisible(o.selectors.IntroQRCode),
	)
}

// waitVisible waits for selector without a Playwright timeout. Budgets are
// enforced through ctx only, so an expired race reports ErrUndecided rather
// than a Playwright TimeoutError.
func (o *PageObserver) waitVisible(selector string) WaitFunc {
	return func(ctx context.Context) error {
		return waitCtx(ctx, func() error {
			return o.page.Locator(selector).First().WaitFor(visibleOptions())
		})
	}
}

func visibleOptions() playwright.LocatorWaitForOptions {
	return playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(0),
	}
}

// SubscribeQRChanges implements Observer.
func (o *PageObserver) SubscribeQRChanges(ctx context.Context, onChange func(qr string)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := o.page.ExposeFunction(qrBindingName, func(args ...interface{}) interface{} {
		if len(args) == 0 {
			return nil
		}
		if qr, ok := args[0].(string); ok && qr != "" {
			onChange(qr)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to expose qr binding: %w", err)
	}

	_, err = o.page.Evaluate(qrWatchScript, map[string]interface{}{
		"container": o.selectors.QRContainer,
		"retry":     o.selectors.QRRetryButton,
	})
	if err != nil {
		return fmt.Errorf("failed to install qr watcher: %w", err)
	}

	return nil
}

// WaitForChallengeResolved implements Observer. There is no timeout: the
// wait ends when the user scans the code or when ctx is cancelled by teardown.
func (o *PageObserver) WaitForChallengeResolved(ctx context.Context) error {
	err := o.waitVisible(o.selectors.IntroImage)(ctx)
	if err != nil && ctx.Err() != nil {
		debugLog.Debugf("Challenge wait ended by teardown: %v", err)
		return nil
	}
	return err
}

// WaitForSessionReady implements Observer.
func (o *PageObserver) WaitForSessionReady(ctx context.Context) error {
	return waitCtx(ctx, func() error {
		noTimeout := float64(0)
		_, err := o.page.WaitForFunction(sessionReadyCheck, nil, playwright.PageWaitForFunctionOptions{
			Timeout: &noTimeout,
		})
		return err
	})
}

// ObserveNavigationAway implements Observer. onNavigate runs on its own
// goroutine so it may call back into the page.
func (o *PageObserver) ObserveNavigationAway(onNavigate func()) {
	o.page.OnFrameNavigated(func(frame playwright.Frame) {
		if frame.ParentFrame() != nil {
			return
		}
		go onNavigate()
	})
}

// AppState implements Observer.
func (o *PageObserver) AppState(ctx context.Context) (types.AppState, error) {
	var result interface{}
	err := waitCtx(ctx, func() error {
		var evalErr error
		result, evalErr = o.page.Evaluate(appStateScript)
		return evalErr
	})
	if err != nil {
		return types.AppStateUnknown, fmt.Errorf("failed to read app state: %w", err)
	}
	return parseAppState(result), nil
}

// Logout implements Observer.
func (o *PageObserver) Logout(ctx context.Context) error {
	return waitCtx(ctx, func() error {
		if _, err := o.page.Evaluate(logoutScript); err != nil {
			return fmt.Errorf("failed to log out page: %w", err)
		}
		return nil
	})
}

// TakeOver implements Observer.
func (o *PageObserver) TakeOver(ctx context.Context) error {
	return waitCtx(ctx, func() error {
		if _, err := o.page.Evaluate(takeoverScript); err != nil {
			return fmt.Errorf("failed to take over session: %w", err)
		}
		return nil
	})
}

func parseAppState(result interface{}) types.AppState {
	state, ok := result.(string)
	if !ok {
		return types.AppStateUnknown
	}
	return types.AppState(state)
}

// waitCtx runs a blocking page call and returns early when ctx ends.
// Playwright calls do not take a context, so an abandoned call keeps running
// until the page answers or closes.
func waitCtx(ctx context.Context, wait func() error) error {
	done := make(chan error, 1)
	go func() {
		done <- wait()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
