package warehouse

import "time"

type RetryPolicy struct {
	MaxAttempts   int           `conf:"MAX_ATTEMPTS" default:"3"`
	BackoffPeriod time.Duration `conf:"BACKOFF_PERIOD" default:"2s"`
}

// Config holds the configuration for the Vision Warehouse API client.
type Config struct {
	ProjectNumber string `conf:"PROJECT_NUMBER" default:""`
	Location      string `conf:"LOCATION" default:"us-central1"`

	// BaseURL is constructed from the default warehouse host when empty.
	BaseURL  string `conf:"BASE_URL" default:""`
	APIToken string `conf:"API_TOKEN" default:""` // static OAuth2 Bearer token; bypasses the token source

	CorpusDisplayName string `conf:"CORPUS_DISPLAY_NAME" default:"logo_similarity_corpus"`
	CorpusDescription string `conf:"CORPUS_DESCRIPTION" default:"Corpus for analyzing logo similarities"`
	IndexDisplayName  string `conf:"INDEX_DISPLAY_NAME" default:"logo_similarity_index"`

	Timeout           time.Duration `conf:"TIMEOUT" default:"5m"`
	RequestsPerSecond float64       `conf:"REQUESTS_PER_SECOND" default:"10"`

	OperationPollInterval time.Duration `conf:"OPERATION_POLL_INTERVAL" default:"5s"`
	OperationPollTimeout  time.Duration `conf:"OPERATION_POLL_TIMEOUT" default:"30m"`

	RetryPolicy RetryPolicy `conf:"RETRY_POLICY"`
}
