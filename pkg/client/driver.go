package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/shopeeweb/pkg/browser"
	"github.com/entrhq/shopeeweb/pkg/observer"
)

// Driver is the page a client works on: the observer's view of it plus the
// two calls that act on the browser directly.
type Driver interface {
	observer.Observer

	// Navigate loads url with the given referer and waits for the load event.
	Navigate(ctx context.Context, url, referer string) error

	// StorageState exports cookies and local storage as JSON.
	StorageState(ctx context.Context) ([]byte, error)
}

// DriverFactory builds the Driver for an acquired browser.
type DriverFactory func(handle *browser.Handle) Driver

// pageDriver is the Playwright-backed Driver.
type pageDriver struct {
	*observer.PageObserver
	handle *browser.Handle
}

// NewPageDriver returns a Driver over the handle's page.
func NewPageDriver(handle *browser.Handle) Driver {
	return &pageDriver{
		PageObserver: observer.NewPageObserver(handle.Page),
		handle:       handle,
	}
}

func (d *pageDriver) Navigate(ctx context.Context, url, referer string) error {
	opts := playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
		Timeout:   playwright.Float(0),
	}
	if referer != "" {
		opts.Referer = playwright.String(referer)
	}

	_, err := await(ctx, func() (playwright.Response, error) {
		resp, err := d.handle.Page.Goto(url, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to navigate to %s: %w", url, err)
		}
		return resp, nil
	})
	return err
}

func (d *pageDriver) StorageState(ctx context.Context) ([]byte, error) {
	return await(ctx, func() ([]byte, error) {
		state, err := d.handle.Context.StorageState()
		if err != nil {
			return nil, fmt.Errorf("failed to read storage state: %w", err)
		}
		return json.Marshal(state)
	})
}

type awaitResult[T any] struct {
	value T
	err   error
}

// await runs a blocking browser call and gives up when ctx ends. Playwright
// calls take no context; an abandoned call finishes in the background.
func await[T any](ctx context.Context, call func() (T, error)) (T, error) {
	done := make(chan awaitResult[T], 1)
	go func() {
		value, err := call()
		done <- awaitResult[T]{value: value, err: err}
	}()

	select {
	case res := <-done:
		return res.value, res.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
