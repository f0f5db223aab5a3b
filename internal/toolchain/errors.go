package toolchain

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Resolution failure kinds. Use errors.Is against these.
var (
	ErrNotConfigured       = errors.New("toolchain path not configured")
	ErrInvalidInstallShape = errors.New("invalid toolchain installation")
	ErrUnreadableConfig    = errors.New("unreadable toolchain config")
	ErrMissingKey          = errors.New("missing toolchain config key")
)

// reconfigureHint is attached to every resolution failure.
const reconfigureHint = "Set the Defold editor path with --editor-path, DBUILD_EDITOR_PATH " +
	"or editor_path in .dbuild.yaml, and check that it points at a Defold installation."

// ResolutionError reports why a toolchain could not be resolved.
// Missing names the absent piece ("config", "archive") or config key.
type ResolutionError struct {
	Kind    error
	Path    string
	Missing string
	Err     error
}

func (e *ResolutionError) Error() string {
	switch {
	case errors.Is(e.Kind, ErrMissingKey):
		return fmt.Sprintf("%v %q in %s", e.Kind, e.Missing, e.Path)
	case e.Missing != "":
		return fmt.Sprintf("%v at %s: missing %s", e.Kind, e.Path, e.Missing)
	case e.Err != nil:
		return fmt.Sprintf("%v at %s: %v", e.Kind, e.Path, e.Err)
	case e.Path != "":
		return fmt.Sprintf("%v: %s", e.Kind, e.Path)
	default:
		return e.Kind.Error()
	}
}

// Is matches the failure kind.
func (e *ResolutionError) Is(target error) bool {
	return target == e.Kind
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

func newResolutionError(kind error, path, missing string, cause error) error {
	return errors.WithHint(&ResolutionError{
		Kind:    kind,
		Path:    path,
		Missing: missing,
		Err:     cause,
	}, reconfigureHint)
}

// MissingKey returns the absent config key when err is a MissingKey failure.
func MissingKey(err error) (string, bool) {
	var rerr *ResolutionError
	if errors.As(err, &rerr) && errors.Is(rerr.Kind, ErrMissingKey) {
		return rerr.Missing, true
	}
	return "", false
}
