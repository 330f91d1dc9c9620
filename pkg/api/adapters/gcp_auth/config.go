package gcp_auth

type Config struct {
	// CredentialsFile overrides Application Default Credentials resolution.
	// When empty, GOOGLE_APPLICATION_CREDENTIALS and the ambient environment
	// are consulted, in that order.
	CredentialsFile string `conf:"CREDENTIALS_FILE" default:""`

	Scope string `conf:"SCOPE" default:"https://www.googleapis.com/auth/cloud-platform"`
}
