package catalog

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/eser/ajan/logfx"
)

// ImageRef points at a local image file discovered in the input directory.
// The derived remote path is owned by the upload layer.
type ImageRef struct {
	LocalPath   string `json:"local_path"`
	DisplayName string `json:"display_name"`
}

type Service struct {
	Config *Config

	logger  *logfx.Logger
	formats map[string]struct{}
}

func NewService(config *Config, logger *logfx.Logger) *Service {
	formats := make(map[string]struct{})
	for _, format := range config.Formats() {
		formats[format] = struct{}{}
	}

	return &Service{Config: config, logger: logger, formats: formats}
}

// IsImageFile reports whether the file extension belongs to a supported
// image format.
func (s *Service) IsImageFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))

	_, ok := s.formats[ext]

	return ok
}

// Discover walks the directory tree and collects every supported image file.
func (s *Service) Discover(dir string) ([]ImageRef, error) {
	var refs []ImageRef

	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		if entry.IsDir() || !s.IsImageFile(path) {
			return nil
		}

		refs = append(refs, ImageRef{
			LocalPath:   path,
			DisplayName: filepath.Base(path),
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk image directory %s: %w", dir, err)
	}

	s.logger.Debug("[Catalog] Discovered images", "module", "catalog", "dir", dir, "count", len(refs))

	return refs, nil
}

// Batches splits the discovered images into batches of the configured size.
func (s *Service) Batches(refs []ImageRef) [][]ImageRef {
	batchSize := s.Config.BatchSize
	if batchSize < 1 {
		batchSize = 1
	}

	var batches [][]ImageRef

	for start := 0; start < len(refs); start += batchSize {
		end := start + batchSize
		if end > len(refs) {
			end = len(refs)
		}

		batches = append(batches, refs[start:end])
	}

	return batches
}
