package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/entrhq/shopeeweb/pkg/config"
	"github.com/entrhq/shopeeweb/pkg/types"
)

// MinBackupInterval is the shortest accepted periodic backup interval.
const MinBackupInterval = time.Minute

// ErrStoreRequired is returned when RemoteAuth is created without a store.
var ErrStoreRequired = errors.New("auth: RemoteAuth requires a session store")

// RemoteAuthOptions configures RemoteAuth.
type RemoteAuthOptions struct {
	// ClientID separates sessions sharing one store
	ClientID string

	// Store holds the serialized sessions
	Store SessionStore

	// DataPath is the local staging directory (default .shopeeweb_auth)
	DataPath string

	// BackupInterval re-saves the session while the client runs; zero disables it
	BackupInterval time.Duration

	// RequireValidSession fails instead of showing a QR code when a stored
	// session exists but no longer signs in
	RequireValidSession bool
}

// RemoteAuth keeps the browser's storage state (cookies and local storage)
// in a SessionStore. The state is staged to a local file before launch,
// saved once the client is ready and, optionally, backed up periodically.
type RemoteAuth struct {
	BaseStrategy

	opts        RemoteAuthOptions
	sessionName string
	stagingDir  string

	mu         sync.Mutex
	statePath  string
	hadSession bool
	stopBackup context.CancelFunc
	backupDone chan struct{}
	emitting   bool
}

// NewRemoteAuth creates a RemoteAuth strategy.
func NewRemoteAuth(opts RemoteAuthOptions) (*RemoteAuth, error) {
	if opts.Store == nil {
		return nil, ErrStoreRequired
	}
	if err := validateClientID(opts.ClientID); err != nil {
		return nil, err
	}
	if opts.BackupInterval != 0 && opts.BackupInterval < MinBackupInterval {
		return nil, fmt.Errorf("auth: backup interval must be at least %s", MinBackupInterval)
	}
	if opts.DataPath == "" {
		opts.DataPath = DefaultDataPath
	}

	dataPath, err := filepath.Abs(opts.DataPath)
	if err != nil {
		return nil, fmt.Errorf("auth: resolve data path: %w", err)
	}
	opts.DataPath = dataPath

	return &RemoteAuth{
		opts:        opts,
		sessionName: sessionDirName("RemoteAuth", opts.ClientID),
		stagingDir:  dataPath,
	}, nil
}

// SessionName returns the key the session is stored under.
func (r *RemoteAuth) SessionName() string {
	return r.sessionName
}

// BeforeBrowserInitialized stages a stored session for the browser to load.
func (r *RemoteAuth) BeforeBrowserInitialized(ctx context.Context) error {
	launch := r.Host().LaunchOptions()
	if launch.UserDataDir != "" {
		return fmt.Errorf("auth: RemoteAuth is not compatible with a user-supplied user_data_dir")
	}

	exists, err := r.opts.Store.SessionExists(ctx, r.sessionName)
	if err != nil {
		return fmt.Errorf("auth: check remote session: %w", err)
	}

	r.mu.Lock()
	r.hadSession = exists
	r.mu.Unlock()

	if !exists {
		debugLog.Infof("RemoteAuth found no stored session %s", r.sessionName)
		return nil
	}

	data, err := r.opts.Store.Load(ctx, r.sessionName)
	if err != nil {
		return fmt.Errorf("auth: load remote session: %w", err)
	}

	path, err := r.stage(data)
	if err != nil {
		return err
	}

	launch.StorageStatePath = path
	debugLog.Infof("RemoteAuth staged session %s at %s", r.sessionName, path)
	return nil
}

// stage writes data to a fresh file in the staging directory via a temp file
// and rename, so a crash never leaves a truncated state file behind.
func (r *RemoteAuth) stage(data []byte) (string, error) {
	if err := os.MkdirAll(r.stagingDir, 0o750); err != nil {
		return "", fmt.Errorf("auth: create staging dir: %w", err)
	}

	path := filepath.Join(r.stagingDir, fmt.Sprintf("%s-%s.json", r.sessionName, uuid.New().String()))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return "", fmt.Errorf("auth: write staged session: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("auth: rename staged session: %w", err)
	}

	r.mu.Lock()
	r.statePath = path
	r.mu.Unlock()
	return path, nil
}

// OnAuthenticationNeeded fails when a stored session did not sign in and
// RequireValidSession is set. Otherwise the stale session is dropped.
func (r *RemoteAuth) OnAuthenticationNeeded(ctx context.Context) (AuthNeededResult, error) {
	r.mu.Lock()
	hadSession := r.hadSession
	r.mu.Unlock()

	if !hadSession {
		return AuthNeededResult{}, nil
	}
	if r.opts.RequireValidSession {
		debugLog.Warnf("RemoteAuth session %s did not resume", r.sessionName)
		return AuthNeededResult{Failed: true, FailureEventPayload: InvalidSessionMessage}, nil
	}

	if err := r.opts.Store.Delete(ctx, r.sessionName); err != nil {
		debugLog.Warnf("Failed to drop stale session %s: %v", r.sessionName, err)
	}
	return AuthNeededResult{}, nil
}

// GetAuthEventPayload implements Strategy.
func (r *RemoteAuth) GetAuthEventPayload(ctx context.Context) (any, error) {
	return SessionInfo{
		Strategy: config.StrategyRemote,
		ClientID: r.opts.ClientID,
		Location: r.sessionName,
	}, nil
}

// AfterAuthReady saves the session and starts the backup loop.
func (r *RemoteAuth) AfterAuthReady(ctx context.Context) error {
	if err := r.StoreRemoteSession(ctx); err != nil {
		return err
	}

	if r.opts.BackupInterval > 0 {
		r.startBackup(ctx)
	}
	return nil
}

// StoreRemoteSession exports the browser's storage state into the store and
// emits remote_session_saved.
func (r *RemoteAuth) StoreRemoteSession(ctx context.Context) error {
	if err := r.saveSession(ctx); err != nil {
		return err
	}
	r.Host().Emit(types.NewRemoteSessionSavedEvent())
	return nil
}

func (r *RemoteAuth) saveSession(ctx context.Context) error {
	data, err := r.Host().StorageState(ctx)
	if err != nil {
		return fmt.Errorf("auth: export storage state: %w", err)
	}

	if err := r.opts.Store.Save(ctx, r.sessionName, data); err != nil {
		return fmt.Errorf("auth: save remote session: %w", err)
	}

	debugLog.Infof("RemoteAuth saved session %s (%d bytes)", r.sessionName, len(data))
	return nil
}

func (r *RemoteAuth) startBackup(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopBackup != nil || ctx.Err() != nil {
		return
	}

	backupCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	r.stopBackup = cancel
	r.backupDone = done

	go func() {
		defer close(done)

		ticker := time.NewTicker(r.opts.BackupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-backupCtx.Done():
				return
			case <-ticker.C:
				if err := r.saveSession(backupCtx); err != nil {
					debugLog.Warnf("Periodic backup of %s failed: %v", r.sessionName, err)
					continue
				}
				if !r.emitBackup(backupCtx) {
					return
				}
			}
		}
	}()
}

// emitBackup reports a periodic save unless the loop was stopped meanwhile.
// Handlers run on the loop goroutine and may stop the loop themselves.
func (r *RemoteAuth) emitBackup(ctx context.Context) bool {
	r.mu.Lock()
	if ctx.Err() != nil {
		r.mu.Unlock()
		return false
	}
	r.emitting = true
	r.mu.Unlock()

	r.Host().Emit(types.NewRemoteSessionSavedEvent())

	r.mu.Lock()
	r.emitting = false
	r.mu.Unlock()
	return true
}

// stopBackupLoop stops the backup goroutine. It waits for the goroutine to
// exit unless the goroutine is delivering an event, which is the case when
// a remote_session_saved handler stops the loop.
func (r *RemoteAuth) stopBackupLoop() {
	r.mu.Lock()
	stop, done, emitting := r.stopBackup, r.backupDone, r.emitting
	r.stopBackup, r.backupDone = nil, nil
	if stop != nil {
		stop()
	}
	r.mu.Unlock()

	if stop == nil || emitting {
		return
	}
	<-done
}

func (r *RemoteAuth) removeStaged() error {
	r.mu.Lock()
	path := r.statePath
	r.statePath = ""
	r.mu.Unlock()

	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("auth: remove staged session: %w", err)
	}
	return nil
}

// Disconnect stops periodic backups.
func (r *RemoteAuth) Disconnect(ctx context.Context) error {
	r.stopBackupLoop()
	return nil
}

// Logout deletes the stored session.
func (r *RemoteAuth) Logout(ctx context.Context) error {
	r.stopBackupLoop()

	if err := r.opts.Store.Delete(ctx, r.sessionName); err != nil {
		return fmt.Errorf("auth: delete remote session: %w", err)
	}

	r.mu.Lock()
	r.hadSession = false
	r.mu.Unlock()

	debugLog.Infof("RemoteAuth deleted session %s", r.sessionName)
	return r.removeStaged()
}

// Destroy stops backups and removes the staged file.
func (r *RemoteAuth) Destroy(ctx context.Context) error {
	r.stopBackupLoop()
	return r.removeStaged()
}
