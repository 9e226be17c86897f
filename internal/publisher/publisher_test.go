package publisher

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/Caiqueoak/cade-meu-busao/internal/metrics"
	"github.com/Caiqueoak/cade-meu-busao/internal/models"
)

type fakeConn struct {
	subjects []string
	payloads [][]byte
	err      error
	drained  bool
	closed   bool
}

func (c *fakeConn) Publish(subject string, data []byte) error {
	if c.err != nil {
		return c.err
	}
	c.subjects = append(c.subjects, subject)
	c.payloads = append(c.payloads, data)
	return nil
}

func (c *fakeConn) Drain() error {
	c.drained = true
	return nil
}

func (c *fakeConn) Close() { c.closed = true }

func testBoard() models.Board {
	return models.Board{
		Line: "8000-10",
		Nearest: []models.RankedBus{
			{
				DistanceKm: 0.35,
				EtaMinutes: 1,
				Position:   models.BusPosition{Prefix: 11433, IsAccessible: true},
				Route:      models.BusRoute{MainTerminal: "PCA. RAMOS DE AZEVEDO", SecondaryTerminal: "TERM. LAPA"},
			},
		},
		UpdatedAt: time.Date(2025, 1, 1, 12, 0, 5, 0, time.UTC),
	}
}

func TestSubjectToken(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"8000-10", "8000-10"},
		{" N 5.1 ", "N_5_1"},
		{"a/b*c>d", "a_b_c_d"},
		{"", "_"},
	}
	for _, tt := range tests {
		if got := subjectToken(tt.in); got != tt.want {
			t.Errorf("subjectToken(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestNATSPublisherPublishBoard(t *testing.T) {
	nc := &fakeConn{}
	p := newNATSPublisher(nc, "bustracker.boards.", slog.New(slog.NewTextHandler(io.Discard, nil)))

	before, err := metrics.Value(metrics.NATSPublished)
	if err != nil {
		t.Fatalf("Failed to read metric: %v", err)
	}

	if err := p.PublishBoard("session-1", testBoard()); err != nil {
		t.Fatalf("PublishBoard failed: %v", err)
	}

	if len(nc.subjects) != 1 || nc.subjects[0] != "bustracker.boards.8000-10" {
		t.Fatalf("Unexpected subjects: %v", nc.subjects)
	}

	var msg BoardMessage
	if err := json.Unmarshal(nc.payloads[0], &msg); err != nil {
		t.Fatalf("Failed to decode payload: %v", err)
	}
	if msg.SessionID != "session-1" || msg.Board.Line != "8000-10" || len(msg.Board.Nearest) != 1 {
		t.Errorf("Unexpected message: %+v", msg)
	}

	after, _ := metrics.Value(metrics.NATSPublished)
	if after != before+1 {
		t.Errorf("Expected published counter %v, got %v", before+1, after)
	}

	p.Close()
	if !nc.drained || !nc.closed {
		t.Error("Expected Close to drain and close the connection")
	}
}

func TestNATSPublisherError(t *testing.T) {
	nc := &fakeConn{err: errors.New("nats: connection closed")}
	p := newNATSPublisher(nc, "boards", slog.New(slog.NewTextHandler(io.Discard, nil)))

	before, _ := metrics.Value(metrics.NATSPublishErrors)
	if err := p.PublishBoard("session-1", testBoard()); err == nil {
		t.Fatal("Expected publish error")
	}
	after, _ := metrics.Value(metrics.NATSPublishErrors)
	if after != before+1 {
		t.Errorf("Expected error counter %v, got %v", before+1, after)
	}
}

func TestWriterPublisher(t *testing.T) {
	var buf bytes.Buffer
	p := NewWriterPublisher(&buf)

	if err := p.PublishBoard("s", testBoard()); err != nil {
		t.Fatalf("PublishBoard failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"[12:00:05] Line 8000-10", "1. bus 11433", "0.35 km, ~1 min", "(accessible)"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out)
		}
	}

	buf.Reset()
	empty := models.Board{Line: "9999-99", Message: "It was not possible to find buses for this line."}
	if err := p.PublishBoard("s", empty); err != nil {
		t.Fatalf("PublishBoard failed: %v", err)
	}
	if !strings.Contains(buf.String(), "It was not possible to find buses") {
		t.Errorf("Expected message in output, got:\n%s", buf.String())
	}
}

type failingPublisher struct{ err error }

func (f failingPublisher) PublishBoard(string, models.Board) error { return f.err }

func TestMulti(t *testing.T) {
	var buf bytes.Buffer
	boom := errors.New("boom")
	m := Multi{failingPublisher{err: boom}, NewWriterPublisher(&buf)}

	err := m.PublishBoard("s", testBoard())
	if !errors.Is(err, boom) {
		t.Errorf("Expected joined error to contain boom, got %v", err)
	}
	if buf.Len() == 0 {
		t.Error("Expected later publishers to run after a failure")
	}
	if err := (Multi{}).PublishBoard("s", testBoard()); err != nil {
		t.Errorf("Expected nil error for empty Multi, got %v", err)
	}
}
