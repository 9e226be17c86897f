package transit

import (
	"errors"
	"fmt"

	"github.com/Caiqueoak/cade-meu-busao/internal/models"
)

// ErrCoolingDown is returned while an upstream host is in backoff after
// repeated failures.
var ErrCoolingDown = errors.New("upstream cooling down")

// FetchError describes a failed upstream fetch. It matches
// models.ErrFetchFailed with errors.Is, as well as its cause.
type FetchError struct {
	Line       string
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch routes for line %q from %s: status %d", e.Line, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch routes for line %q from %s: %v", e.Line, e.URL, e.Err)
}

func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{models.ErrFetchFailed}
	}
	return []error{models.ErrFetchFailed, e.Err}
}
