package comparer

import (
	"errors"

	"github.com/diffreport/diffreport/pkg/comparer/cache"
)

// Error categories returned by Run or recorded in Report.Errors. Callers
// check against these with errors.Is.
var (
	// ErrPrecondition indicates the two top-level inputs are not both files
	// or both directories, or one of them does not exist. Fatal, reported
	// before any output is written.
	ErrPrecondition = errors.New("input precondition failed")

	// ErrOutputConflict indicates the output destination already exists and
	// overwriting was not confirmed. Fatal, reported before any work begins.
	ErrOutputConflict = errors.New("output destination already exists")

	// ErrConfigValidation indicates the provided Options failed validation.
	ErrConfigValidation = errors.New("invalid configuration options provided")

	// ErrStatFailed indicates a failure to stat a path during classification.
	ErrStatFailed = errors.New("failed to get file stats")

	// ErrReadFailed indicates a failure to read a compared file.
	ErrReadFailed = errors.New("failed to read file")

	// ErrWriteFailed indicates a failure to write a report artifact.
	ErrWriteFailed = errors.New("failed to write output file")

	// ErrMkdirFailed indicates a failure to create an output subdirectory.
	ErrMkdirFailed = errors.New("failed to create output directory")

	// ErrListSource indicates the explicit path list could not be read.
	ErrListSource = errors.New("failed to read path list")
)

// Cache errors surface under the same names here so callers need only this
// package for errors.Is checks.
var (
	ErrCacheLoad    = cache.ErrCacheLoad
	ErrCachePersist = cache.ErrCachePersist
)
