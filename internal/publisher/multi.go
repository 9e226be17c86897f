package publisher

import (
	"errors"

	"github.com/Caiqueoak/cade-meu-busao/internal/models"
	"github.com/Caiqueoak/cade-meu-busao/internal/tracker"
)

// Multi publishes to every wrapped publisher, even when some fail.
type Multi []tracker.Publisher

func (m Multi) PublishBoard(sessionID string, b models.Board) error {
	var errs []error
	for _, p := range m {
		if err := p.PublishBoard(sessionID, b); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
