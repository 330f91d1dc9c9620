package gcp_auth

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/eser/ajan/logfx"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

var ErrCredentialsNotResolved = errors.New("failed to resolve google cloud credentials")

// Auth resolves Google Cloud credentials once and hands out token sources
// for the clients that talk to googleapis.com endpoints.
type Auth struct {
	Config *Config

	logger      *logfx.Logger
	credentials *google.Credentials
}

func New(config *Config, logger *logfx.Logger) *Auth {
	return &Auth{Config: config, logger: logger}
}

func (a *Auth) Init(ctx context.Context) error {
	if a.Config.CredentialsFile != "" {
		keyJSON, err := os.ReadFile(a.Config.CredentialsFile)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrCredentialsNotResolved, err)
		}

		credentials, err := google.CredentialsFromJSON(ctx, keyJSON, a.Config.Scope)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrCredentialsNotResolved, err)
		}

		a.credentials = credentials

		a.logger.InfoContext(ctx, "[GcpAuth] Credentials loaded from key file", "module", "gcp_auth", "credentialsFile", a.Config.CredentialsFile, "projectId", credentials.ProjectID)

		return nil
	}

	credentials, err := google.FindDefaultCredentials(ctx, a.Config.Scope)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCredentialsNotResolved, err)
	}

	a.credentials = credentials

	a.logger.InfoContext(ctx, "[GcpAuth] Application default credentials resolved", "module", "gcp_auth", "projectId", credentials.ProjectID)

	return nil
}

// Credentials returns the resolved credentials. Init must have been called.
func (a *Auth) Credentials() *google.Credentials {
	return a.credentials
}

// TokenSource returns a token source for Authorization: Bearer headers.
func (a *Auth) TokenSource() oauth2.TokenSource {
	if a.credentials == nil {
		return nil
	}

	return a.credentials.TokenSource
}

// ProjectID reports the project the credentials belong to, when known.
func (a *Auth) ProjectID() string {
	if a.credentials == nil {
		return ""
	}

	return a.credentials.ProjectID
}
