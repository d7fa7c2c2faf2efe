package config

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoCodePatterns indicates an empty code glob list
	ErrNoCodePatterns = errors.New("no code patterns configured")

	// ErrInvalidWorkers indicates a negative worker count
	ErrInvalidWorkers = errors.New("invalid worker count")

	// ErrInvalidFileSize indicates a non-positive file size limit
	ErrInvalidFileSize = errors.New("invalid max file size")

	// ErrInvalidMaxResults indicates a non-positive result cap
	ErrInvalidMaxResults = errors.New("invalid max results")

	// ErrInvalidContextLines indicates a negative context line count
	ErrInvalidContextLines = errors.New("invalid context lines")

	// ErrInvalidMinLines indicates a non-positive duplicate block size
	ErrInvalidMinLines = errors.New("invalid duplicate min lines")

	// ErrInvalidThreshold indicates a similarity threshold outside (0, 1]
	ErrInvalidThreshold = errors.New("invalid similarity threshold")
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if len(cfg.Paths.Code) == 0 {
		errs = append(errs, ErrNoCodePatterns)
	}
	if cfg.Indexing.Workers < 0 {
		errs = append(errs, fmt.Errorf("%w: %d", ErrInvalidWorkers, cfg.Indexing.Workers))
	}
	if cfg.Indexing.MaxFileSizeKB <= 0 {
		errs = append(errs, fmt.Errorf("%w: %d KB", ErrInvalidFileSize, cfg.Indexing.MaxFileSizeKB))
	}
	if cfg.Search.MaxResults <= 0 {
		errs = append(errs, fmt.Errorf("%w: %d", ErrInvalidMaxResults, cfg.Search.MaxResults))
	}
	if cfg.Search.ContextLines < 0 {
		errs = append(errs, fmt.Errorf("%w: %d", ErrInvalidContextLines, cfg.Search.ContextLines))
	}
	if cfg.Duplicates.MinLines <= 0 {
		errs = append(errs, fmt.Errorf("%w: %d", ErrInvalidMinLines, cfg.Duplicates.MinLines))
	}
	if cfg.Duplicates.Threshold <= 0 || cfg.Duplicates.Threshold > 1 {
		errs = append(errs, fmt.Errorf("%w: %g", ErrInvalidThreshold, cfg.Duplicates.Threshold))
	}

	return joinErrors(errs)
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var msgs []string
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Errorf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}
