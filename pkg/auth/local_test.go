package auth

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/shopeeweb/pkg/config"
)

func TestNoAuth(t *testing.T) {
	ctx := context.Background()
	strategy := NewNoAuth()
	host := newFakeHost()
	strategy.Setup(host)

	require.NoError(t, strategy.BeforeBrowserInitialized(ctx))
	assert.Empty(t, host.launch.UserDataDir)
	assert.Empty(t, host.launch.StorageStatePath)

	result, err := strategy.OnAuthenticationNeeded(ctx)
	require.NoError(t, err)
	assert.False(t, result.Failed)

	payload, err := strategy.GetAuthEventPayload(ctx)
	require.NoError(t, err)
	assert.Equal(t, SessionInfo{Strategy: config.StrategyNone}, payload)

	assert.NoError(t, strategy.Logout(ctx))
	assert.NoError(t, strategy.Destroy(ctx))
}

func TestNewLocalAuth_ClientIDValidation(t *testing.T) {
	tests := []struct {
		clientID string
		valid    bool
	}{
		{"", true},
		{"shop-1", true},
		{"shop_main", true},
		{"../escape", false},
		{"has space", false},
		{"a/b", false},
	}

	for _, tt := range tests {
		t.Run(tt.clientID, func(t *testing.T) {
			_, err := NewLocalAuth(LocalAuthOptions{ClientID: tt.clientID, DataPath: t.TempDir()})
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidClientID)
			}
		})
	}
}

func TestLocalAuth_DataDir(t *testing.T) {
	dataPath := t.TempDir()

	withID, err := NewLocalAuth(LocalAuthOptions{ClientID: "shop-1", DataPath: dataPath})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dataPath, "session-shop-1"), withID.DataDir())

	withoutID, err := NewLocalAuth(LocalAuthOptions{DataPath: dataPath})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dataPath, "session"), withoutID.DataDir())
}

func TestLocalAuth_BeforeBrowserInitialized(t *testing.T) {
	ctx := context.Background()
	strategy, err := NewLocalAuth(LocalAuthOptions{ClientID: "shop-1", DataPath: t.TempDir()})
	require.NoError(t, err)

	host := newFakeHost()
	strategy.Setup(host)

	require.NoError(t, strategy.BeforeBrowserInitialized(ctx))
	assert.Equal(t, strategy.DataDir(), host.launch.UserDataDir)

	info, err := os.Stat(strategy.DataDir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestLocalAuth_UserDataDirConflict(t *testing.T) {
	strategy, err := NewLocalAuth(LocalAuthOptions{DataPath: t.TempDir()})
	require.NoError(t, err)

	host := newFakeHost()
	host.launch.UserDataDir = "/somewhere/else"
	strategy.Setup(host)

	err = strategy.BeforeBrowserInitialized(context.Background())
	assert.ErrorIs(t, err, ErrUserDataDirConflict)
}

func TestLocalAuth_OnAuthenticationNeeded(t *testing.T) {
	tests := []struct {
		name        string
		require     bool
		seedProfile bool
		signedIn    bool
		wantFailed  bool
	}{
		{"fresh profile", true, false, false, false},
		{"never signed in, strict", true, true, false, false},
		{"stale profile, lenient", false, true, true, false},
		{"stale profile, strict", true, true, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			strategy, err := NewLocalAuth(LocalAuthOptions{DataPath: t.TempDir(), RequireValidSession: tt.require})
			require.NoError(t, err)

			if tt.seedProfile {
				// what the browser leaves behind after any launch
				require.NoError(t, os.MkdirAll(filepath.Join(strategy.DataDir(), "Default"), 0o750))
				require.NoError(t, os.WriteFile(filepath.Join(strategy.DataDir(), "Local State"), []byte("{}"), 0o600))
			}
			if tt.signedIn {
				require.NoError(t, os.WriteFile(filepath.Join(strategy.DataDir(), sessionMarker), nil, 0o600))
			}

			strategy.Setup(newFakeHost())
			require.NoError(t, strategy.BeforeBrowserInitialized(ctx))

			result, err := strategy.OnAuthenticationNeeded(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.wantFailed, result.Failed)
			if tt.wantFailed {
				assert.Equal(t, InvalidSessionMessage, result.FailureEventPayload)
			}
		})
	}
}

func TestLocalAuth_SignInIsRemembered(t *testing.T) {
	ctx := context.Background()
	dataPath := t.TempDir()

	first, err := NewLocalAuth(LocalAuthOptions{ClientID: "shop-1", DataPath: dataPath, RequireValidSession: true})
	require.NoError(t, err)
	first.Setup(newFakeHost())
	require.NoError(t, first.BeforeBrowserInitialized(ctx))
	require.NoError(t, first.AfterAuthReady(ctx))

	second, err := NewLocalAuth(LocalAuthOptions{ClientID: "shop-1", DataPath: dataPath, RequireValidSession: true})
	require.NoError(t, err)
	second.Setup(newFakeHost())
	require.NoError(t, second.BeforeBrowserInitialized(ctx))

	result, err := second.OnAuthenticationNeeded(ctx)
	require.NoError(t, err)
	assert.True(t, result.Failed, "a signed-in profile that no longer resumes is stale")

	require.NoError(t, second.Logout(ctx))
	require.NoError(t, second.BeforeBrowserInitialized(ctx))
	result, err = second.OnAuthenticationNeeded(ctx)
	require.NoError(t, err)
	assert.False(t, result.Failed)
}

func TestLocalAuth_Logout(t *testing.T) {
	ctx := context.Background()
	strategy, err := NewLocalAuth(LocalAuthOptions{ClientID: "shop-1", DataPath: t.TempDir()})
	require.NoError(t, err)
	strategy.Setup(newFakeHost())

	require.NoError(t, strategy.BeforeBrowserInitialized(ctx))
	require.NoError(t, os.WriteFile(filepath.Join(strategy.DataDir(), "Cookies"), []byte("x"), 0o600))

	require.NoError(t, strategy.Logout(ctx))

	_, err = os.Stat(strategy.DataDir())
	assert.True(t, os.IsNotExist(err))
}

func TestLocalAuth_Payload(t *testing.T) {
	strategy, err := NewLocalAuth(LocalAuthOptions{ClientID: "shop-1", DataPath: t.TempDir()})
	require.NoError(t, err)

	payload, err := strategy.GetAuthEventPayload(context.Background())
	require.NoError(t, err)

	info, ok := payload.(SessionInfo)
	require.True(t, ok)
	assert.Equal(t, config.StrategyLocal, info.Strategy)
	assert.Equal(t, "shop-1", info.ClientID)
	assert.Equal(t, strategy.DataDir(), info.Location)
}
