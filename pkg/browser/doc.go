// Package browser acquires the browser a client drives through Playwright.
//
// A Launcher hands out a Handle holding one browser context and the page the
// session observer attaches to. Three acquisition modes are supported:
//
//   - Launch: a fresh Chromium with an isolated context, optionally seeded from
//     a saved storage state (cookies and local storage)
//   - Persistent: a Chromium profile directory reused across runs, which is how
//     LocalAuth keeps a session alive on disk
//   - Connect: attach over CDP to a browser that is already running
//
// The launcher owns the Playwright driver. It is started on the first Acquire
// and stopped by Release, so one launcher serves exactly one client.
//
// # Example Usage
//
//	launcher := browser.NewPlaywrightLauncher()
//	h, err := launcher.Acquire(ctx, browser.LaunchOptions{
//	    Headless: true,
//	    Viewport: &browser.Viewport{Width: 1920, Height: 1080},
//	})
//	if err != nil {
//	    return err
//	}
//	defer launcher.Release(ctx, h)
package browser
