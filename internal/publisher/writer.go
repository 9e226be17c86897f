package publisher

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/Caiqueoak/cade-meu-busao/internal/models"
)

// WriterPublisher prints boards as plain text.
type WriterPublisher struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterPublisher(w io.Writer) *WriterPublisher {
	return &WriterPublisher{w: w}
}

func (p *WriterPublisher) PublishBoard(sessionID string, b models.Board) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] Line %s\n", b.UpdatedAt.Format("15:04:05"), b.Line)

	if b.Message != "" {
		fmt.Fprintf(&sb, "  %s\n", b.Message)
	}
	for i, rb := range b.Nearest {
		fmt.Fprintf(&sb, "  %d. bus %d %s -> %s: %.2f km, ~%d min",
			i+1, rb.Position.Prefix, rb.Route.MainTerminal, rb.Route.SecondaryTerminal, rb.DistanceKm, rb.EtaMinutes)
		if rb.Position.IsAccessible {
			sb.WriteString(" (accessible)")
		}
		sb.WriteString("\n")
	}
	if b.Message == "" && len(b.Nearest) == 0 {
		sb.WriteString("  No buses reporting positions.\n")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := io.WriteString(p.w, sb.String())
	return err
}
