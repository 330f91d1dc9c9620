package gcp_auth

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/eser/ajan/logfx"
	"github.com/stretchr/testify/require"
)

func newTestAuth(t *testing.T, config *Config) *Auth {
	t.Helper()

	logger, err := logfx.NewLoggerAsDefault(io.Discard, &logfx.Config{Level: "ERROR"})
	require.NoError(t, err)

	return New(config, logger)
}

func TestInitLoadsCredentialsFromKeyFile(t *testing.T) {
	t.Parallel()

	keyFile := filepath.Join(t.TempDir(), "credentials.json")
	keyJSON := `{
		"type": "authorized_user",
		"client_id": "client-id",
		"client_secret": "client-secret",
		"refresh_token": "refresh-token"
	}`
	require.NoError(t, os.WriteFile(keyFile, []byte(keyJSON), 0o600))

	auth := newTestAuth(t, &Config{
		CredentialsFile: keyFile,
		Scope:           "https://www.googleapis.com/auth/cloud-platform",
	})

	require.NoError(t, auth.Init(context.Background()))
	require.NotNil(t, auth.Credentials())
	require.NotNil(t, auth.TokenSource())
}

func TestInitFailsOnMissingKeyFile(t *testing.T) {
	t.Parallel()

	auth := newTestAuth(t, &Config{
		CredentialsFile: filepath.Join(t.TempDir(), "missing.json"),
		Scope:           "https://www.googleapis.com/auth/cloud-platform",
	})

	err := auth.Init(context.Background())
	require.ErrorIs(t, err, ErrCredentialsNotResolved)
}

func TestAccessorsBeforeInit(t *testing.T) {
	t.Parallel()

	auth := newTestAuth(t, &Config{})

	require.Nil(t, auth.TokenSource())
	require.Empty(t, auth.ProjectID())
}
