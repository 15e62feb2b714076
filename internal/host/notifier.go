package host

import (
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
)

// Notifier surfaces user-facing warnings. Each warning is logged and, when
// a writer is set, printed on its own line.
type Notifier struct {
	mu     sync.Mutex
	logger *zap.Logger
	out    io.Writer
}

// NewNotifier returns a Notifier. out may be nil.
//
// Precondition: logger must be non-nil.
func NewNotifier(logger *zap.Logger, out io.Writer) *Notifier {
	return &Notifier{logger: logger, out: out}
}

// Warn shows msg to the user.
func (n *Notifier) Warn(msg string) {
	n.logger.Warn("user notification", zap.String("message", msg))
	if n.out == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	_, _ = fmt.Fprintf(n.out, "warning: %s\n", msg)
}
