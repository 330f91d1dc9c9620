package runs

type Config struct {
	// MaxResults caps the number of matches returned per similarity query.
	MaxResults int `conf:"MAX_RESULTS" default:"10"`

	EndpointDisplayNamePrefix string `conf:"ENDPOINT_DISPLAY_NAME_PREFIX" default:"logo_similarity_endpoint"`
	EndpointDescription       string `conf:"ENDPOINT_DESCRIPTION" default:"Endpoint for logo similarity search"`
}
