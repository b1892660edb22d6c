// Package clipboard provides access to the host clipboard.
package clipboard

import (
	"context"
	"sync"

	"github.com/atotto/clipboard"
	"github.com/pkg/errors"
)

// Copier copies text to a clipboard.
type Copier interface {
	Copy(ctx context.Context, text string) error
}

// System writes to the operating system clipboard via github.com/atotto/clipboard.
type System struct{}

func NewSystem() *System {
	return &System{}
}

func (s *System) Copy(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if clipboard.Unsupported {
		return errors.New("clipboard: no clipboard utility available on this system")
	}
	if err := clipboard.WriteAll(text); err != nil {
		return errors.Wrap(err, "clipboard: write")
	}
	return nil
}

// Memory keeps copies in process, for headless hosts.
type Memory struct {
	mu      sync.Mutex
	history []string
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Copy(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.history = append(m.history, text)
	m.mu.Unlock()
	return nil
}

// Text returns the most recent copy, or "" when nothing was copied.
func (m *Memory) Text() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.history) == 0 {
		return ""
	}
	return m.history[len(m.history)-1]
}

func (m *Memory) History() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.history...)
}

const (
	KindSystem = "system"
	KindMemory = "memory"
)

// New returns the Copier for kind.
func New(kind string) (Copier, error) {
	switch kind {
	case "", KindSystem:
		return NewSystem(), nil
	case KindMemory:
		return NewMemory(), nil
	default:
		return nil, errors.Errorf("clipboard: unknown kind %q", kind)
	}
}

var (
	_ Copier = (*System)(nil)
	_ Copier = (*Memory)(nil)
)
