package gcs_store

type Config struct {
	// ProjectID is only needed when a missing bucket has to be created.
	ProjectID string `conf:"PROJECT_ID" default:""`

	UploadPrefix string `conf:"UPLOAD_PREFIX" default:"logos"`

	MaxConcurrency int `conf:"MAX_CONCURRENCY" default:"8"`
}
