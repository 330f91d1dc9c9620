package catalog

import "strings"

type Config struct {
	// SupportedFormats is a comma-separated list of file extensions that are
	// treated as logo images.
	SupportedFormats string `conf:"SUPPORTED_FORMATS" default:".jpg,.jpeg,.png"`

	// BatchSize is the number of images processed per upload batch.
	BatchSize int `conf:"BATCH_SIZE" default:"100"`
}

func (c *Config) Formats() []string {
	parts := strings.Split(c.SupportedFormats, ",")

	formats := make([]string, 0, len(parts))
	for _, part := range parts {
		format := strings.ToLower(strings.TrimSpace(part))
		if format != "" {
			formats = append(formats, format)
		}
	}

	return formats
}
