package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/entrhq/shopeeweb/pkg/config"
)

// DefaultDataPath is where persisted sessions live unless configured.
const DefaultDataPath = ".shopeeweb_auth"

// sessionMarker is written into a profile once it has signed in. The
// browser fills a profile on every launch, so its contents alone do not
// show that a session was ever established.
const sessionMarker = ".authenticated"

var (
	// ErrInvalidClientID is returned for client IDs that are not safe directory names.
	ErrInvalidClientID = errors.New("auth: invalid client id (only alphanumerics, underscores and hyphens are allowed)")

	// ErrUserDataDirConflict is returned when a profile directory was configured by hand.
	ErrUserDataDirConflict = errors.New("auth: LocalAuth is not compatible with a user-supplied user_data_dir")
)

var clientIDPattern = regexp.MustCompile(`^[-_\w]+$`)

func validateClientID(id string) error {
	if id != "" && !clientIDPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidClientID, id)
	}
	return nil
}

func sessionDirName(prefix, clientID string) string {
	if clientID == "" {
		return prefix
	}
	return prefix + "-" + clientID
}

// LocalAuthOptions configures LocalAuth.
type LocalAuthOptions struct {
	// ClientID separates sessions when several clients share DataPath
	ClientID string

	// DataPath is the directory holding session profiles (default .shopeeweb_auth)
	DataPath string

	// RequireValidSession fails instead of showing a QR code when a saved
	// profile exists but no longer signs in
	RequireValidSession bool
}

// LocalAuth keeps the session in a browser profile directory on disk.
type LocalAuth struct {
	BaseStrategy

	opts       LocalAuthOptions
	dataDir    string
	hadSession bool
}

// NewLocalAuth creates a LocalAuth strategy.
func NewLocalAuth(opts LocalAuthOptions) (*LocalAuth, error) {
	if err := validateClientID(opts.ClientID); err != nil {
		return nil, err
	}
	if opts.DataPath == "" {
		opts.DataPath = DefaultDataPath
	}

	dataPath, err := filepath.Abs(opts.DataPath)
	if err != nil {
		return nil, fmt.Errorf("auth: resolve data path: %w", err)
	}
	opts.DataPath = dataPath

	return &LocalAuth{
		opts:    opts,
		dataDir: filepath.Join(dataPath, sessionDirName("session", opts.ClientID)),
	}, nil
}

// DataDir returns the profile directory used for this client.
func (l *LocalAuth) DataDir() string {
	return l.dataDir
}

// BeforeBrowserInitialized points the browser at the profile directory.
func (l *LocalAuth) BeforeBrowserInitialized(ctx context.Context) error {
	launch := l.Host().LaunchOptions()
	if launch.UserDataDir != "" && launch.UserDataDir != l.dataDir {
		return ErrUserDataDirConflict
	}

	_, err := os.Stat(l.markerPath())
	switch {
	case err == nil:
		l.hadSession = true
	case errors.Is(err, os.ErrNotExist):
		l.hadSession = false
	default:
		return fmt.Errorf("auth: check session marker in %s: %w", l.dataDir, err)
	}

	if err := os.MkdirAll(l.dataDir, 0o750); err != nil {
		return fmt.Errorf("auth: create session dir %s: %w", l.dataDir, err)
	}

	launch.UserDataDir = l.dataDir
	debugLog.Infof("LocalAuth using profile %s (existing session: %v)", l.dataDir, l.hadSession)
	return nil
}

// OnAuthenticationNeeded fails when a saved profile did not sign in and
// RequireValidSession is set.
func (l *LocalAuth) OnAuthenticationNeeded(ctx context.Context) (AuthNeededResult, error) {
	if l.opts.RequireValidSession && l.hadSession {
		debugLog.Warnf("LocalAuth profile %s did not resume", l.dataDir)
		return AuthNeededResult{Failed: true, FailureEventPayload: InvalidSessionMessage}, nil
	}
	return AuthNeededResult{}, nil
}

// GetAuthEventPayload implements Strategy.
func (l *LocalAuth) GetAuthEventPayload(ctx context.Context) (any, error) {
	return SessionInfo{
		Strategy: config.StrategyLocal,
		ClientID: l.opts.ClientID,
		Location: l.dataDir,
	}, nil
}

// AfterAuthReady marks the profile as holding a signed-in session.
func (l *LocalAuth) AfterAuthReady(ctx context.Context) error {
	if err := os.WriteFile(l.markerPath(), nil, 0o600); err != nil {
		return fmt.Errorf("auth: write session marker: %w", err)
	}
	return nil
}

func (l *LocalAuth) markerPath() string {
	return filepath.Join(l.dataDir, sessionMarker)
}

// Logout removes the profile directory.
func (l *LocalAuth) Logout(ctx context.Context) error {
	if err := os.RemoveAll(l.dataDir); err != nil {
		return fmt.Errorf("auth: remove session dir %s: %w", l.dataDir, err)
	}
	l.hadSession = false
	debugLog.Infof("LocalAuth removed profile %s", l.dataDir)
	return nil
}
