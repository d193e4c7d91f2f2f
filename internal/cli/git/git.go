// Package git provides comparer.GitClient implementations. The default
// backend shells out to the git executable; building with -tags gogit swaps
// in a pure go-git backend. Both expose the same NewClient constructor.
package git

import (
	"errors"
	"fmt"
)

// ErrGitOperation wraps every failure returned by the git backends: the path
// not being a repository, an unknown reference, or the underlying command or
// library failing. Check with errors.Is.
var ErrGitOperation = errors.New("git operation failed")

// Errorf returns a formatted error wrapping ErrGitOperation. Additional %w
// operands in format stay unwrappable.
func Errorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrGitOperation}, args...)...)
}
