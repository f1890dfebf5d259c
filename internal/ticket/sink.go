package ticket

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// Sink receives rendered tickets.
type Sink interface {
	Write(saleID string, ticket string) error
}

// DirSink writes one file per sale. A redelivered sale overwrites its file.
type DirSink struct {
	Dir string
}

func (s DirSink) Write(saleID, ticket string) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create ticket dir: %w", err)
	}
	name := filepath.Join(s.Dir, filepath.Base(saleID)+".txt")
	if err := os.WriteFile(name, []byte(ticket), 0o644); err != nil {
		return fmt.Errorf("write ticket %s: %w", saleID, err)
	}
	return nil
}

// StreamSink writes tickets one after another, separated by a blank line.
type StreamSink struct {
	mu sync.Mutex
	W  io.Writer
}

func (s *StreamSink) Write(_ string, ticket string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.W, ticket+"\n")
	return err
}
