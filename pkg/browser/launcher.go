package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/shopeeweb/pkg/logging"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("browser")
	if err != nil {
		debugLog.Warnf("Failed to initialize browser logger, using stderr fallback: %v", err)
	}
}

// Launcher acquires and releases the browser a client drives.
type Launcher interface {
	// Acquire starts or attaches to a browser and returns a page ready for navigation.
	Acquire(ctx context.Context, opts LaunchOptions) (*Handle, error)

	// Release closes everything Acquire opened for the handle.
	Release(ctx context.Context, h *Handle) error
}

// PlaywrightLauncher implements Launcher with a Playwright driver.
// The driver is started lazily on the first Acquire and stopped on Release.
type PlaywrightLauncher struct {
	mu         sync.Mutex
	playwright *playwright.Playwright

	// SkipInstall skips downloading the driver and browsers before the first run
	SkipInstall bool
}

// NewPlaywrightLauncher creates a new launcher.
func NewPlaywrightLauncher() *PlaywrightLauncher {
	return &PlaywrightLauncher{}
}

func (l *PlaywrightLauncher) start() (*playwright.Playwright, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.playwright != nil {
		return l.playwright, nil
	}

	// Keep the driver quiet, callers own stdout
	opts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}

	if !l.SkipInstall {
		if err := playwright.Install(opts); err != nil {
			return nil, fmt.Errorf("failed to install playwright: %w", err)
		}
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	l.playwright = pw
	return pw, nil
}

// Acquire launches, attaches to, or opens a persistent browser according to opts.
func (l *PlaywrightLauncher) Acquire(ctx context.Context, opts LaunchOptions) (*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pw, err := l.start()
	if err != nil {
		return nil, err
	}

	var h *Handle
	switch {
	case opts.WSEndpoint != "":
		h, err = l.connect(pw, opts)
	case opts.UserDataDir != "":
		h, err = l.launchPersistent(pw, opts)
	default:
		h, err = l.launch(pw, opts)
	}
	if err != nil {
		return nil, err
	}

	if opts.Timeout > 0 {
		h.Page.SetDefaultTimeout(opts.Timeout)
	}

	debugLog.Infof("Acquired browser (connected=%v, persistent=%v, headless=%v)", h.Connected, h.Persistent, opts.Headless)
	return h, nil
}

func (l *PlaywrightLauncher) connect(pw *playwright.Playwright, opts LaunchOptions) (*Handle, error) {
	browser, err := pw.Chromium.ConnectOverCDP(opts.WSEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	browserCtx, err := browser.NewContext(contextOptions(opts))
	if err != nil {
		browser.Close()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	page, err := browserCtx.NewPage()
	if err != nil {
		browserCtx.Close()
		browser.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	return &Handle{Browser: browser, Context: browserCtx, Page: page, Connected: true}, nil
}

func (l *PlaywrightLauncher) launch(pw *playwright.Playwright, opts LaunchOptions) (*Handle, error) {
	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: &opts.Headless,
		Args:     opts.args(),
	}
	if opts.ExecutablePath != "" {
		launchOpts.ExecutablePath = &opts.ExecutablePath
	}

	browser, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browserCtx, err := browser.NewContext(contextOptions(opts))
	if err != nil {
		browser.Close()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	page, err := browserCtx.NewPage()
	if err != nil {
		browserCtx.Close()
		browser.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	return &Handle{Browser: browser, Context: browserCtx, Page: page}, nil
}

func (l *PlaywrightLauncher) launchPersistent(pw *playwright.Playwright, opts LaunchOptions) (*Handle, error) {
	persistentOpts := playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless:  &opts.Headless,
		Args:      opts.args(),
		BypassCSP: &opts.BypassCSP,
		Viewport:  opts.size(),
	}
	if opts.ExecutablePath != "" {
		persistentOpts.ExecutablePath = &opts.ExecutablePath
	}
	if opts.UserAgent != "" {
		persistentOpts.UserAgent = &opts.UserAgent
	}

	browserCtx, err := pw.Chromium.LaunchPersistentContext(opts.UserDataDir, persistentOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to launch persistent context: %w", err)
	}

	// A persistent context opens with a blank page already
	var page playwright.Page
	if pages := browserCtx.Pages(); len(pages) > 0 {
		page = pages[0]
	} else {
		page, err = browserCtx.NewPage()
		if err != nil {
			browserCtx.Close()
			return nil, fmt.Errorf("failed to create page: %w", err)
		}
	}

	return &Handle{Context: browserCtx, Page: page, Persistent: true}, nil
}

func contextOptions(opts LaunchOptions) playwright.BrowserNewContextOptions {
	contextOpts := playwright.BrowserNewContextOptions{
		BypassCSP: &opts.BypassCSP,
		Viewport:  opts.size(),
	}
	if opts.UserAgent != "" {
		contextOpts.UserAgent = &opts.UserAgent
	}
	if opts.StorageStatePath != "" {
		contextOpts.StorageStatePath = &opts.StorageStatePath
	}
	return contextOpts
}

// Release closes the handle's page, context and browser, then stops the driver.
// Close errors are collected rather than aborting the cleanup.
func (l *PlaywrightLauncher) Release(ctx context.Context, h *Handle) error {
	var errs []error

	if h != nil {
		if h.Page != nil {
			if err := h.Page.Close(); err != nil && !errors.Is(err, playwright.ErrTargetClosed) {
				errs = append(errs, err)
			}
		}
		if h.Context != nil {
			if err := h.Context.Close(); err != nil && !errors.Is(err, playwright.ErrTargetClosed) {
				errs = append(errs, err)
			}
		}
		if h.Browser != nil {
			if err := h.Browser.Close(); err != nil && !errors.Is(err, playwright.ErrTargetClosed) {
				errs = append(errs, err)
			}
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.playwright != nil {
		if err := l.playwright.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
		l.playwright = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors releasing browser: %w", errors.Join(errs...))
	}
	debugLog.Infof("Released browser")
	return nil
}
