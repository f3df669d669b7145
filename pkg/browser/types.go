package browser

import (
	"strings"

	"github.com/playwright-community/playwright-go"
)

// Handle is an acquired browser with the single page the client drives.
type Handle struct {
	// Browser is nil when the handle was launched with a persistent profile
	Browser playwright.Browser

	// Context is the browser context holding the session's cookies and storage
	Context playwright.BrowserContext

	// Page is the page the observer attaches to
	Page playwright.Page

	// Persistent indicates the context was launched from a user data directory
	Persistent bool

	// Connected indicates the browser was attached over CDP rather than launched
	Connected bool
}

// LaunchOptions configures browser acquisition.
type LaunchOptions struct {
	// Headless controls whether the browser runs without a visible window
	Headless bool

	// Viewport sets the initial viewport size
	Viewport *Viewport

	// Args are extra command line switches for a launched browser
	Args []string

	// ExecutablePath overrides the bundled browser binary
	ExecutablePath string

	// WSEndpoint attaches to a running browser over CDP instead of launching one
	WSEndpoint string

	// UserDataDir launches a persistent profile from this directory
	UserDataDir string

	// StorageStatePath seeds a fresh context with saved cookies and local storage
	StorageStatePath string

	// UserAgent is applied to the context
	UserAgent string

	// BypassCSP disables the page's content security policy
	BypassCSP bool

	// Timeout sets the default timeout for page operations (in milliseconds, 0 means none)
	Timeout float64
}

// Viewport represents the browser viewport dimensions.
type Viewport struct {
	Width  int
	Height int
}

func (o LaunchOptions) size() *playwright.Size {
	if o.Viewport == nil {
		return nil
	}
	return &playwright.Size{
		Width:  o.Viewport.Width,
		Height: o.Viewport.Height,
	}
}

// args returns the launch switches with the user agent appended unless one is already set.
func (o LaunchOptions) args() []string {
	args := append([]string(nil), o.Args...)
	if o.UserAgent == "" {
		return args
	}
	for _, arg := range args {
		if strings.HasPrefix(arg, "--user-agent") {
			return args
		}
	}
	return append(args, "--user-agent="+o.UserAgent)
}
