package idgen

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LogIDWidth is the column width of log_id in the log tables
const LogIDWidth = 20

// Clock supplies the current time. Production code uses SystemClock;
// tests substitute a fixed clock.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock on time.Now
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Generator produces unique, time-orderable log IDs
type Generator struct {
	clock Clock
}

// New creates a Generator. A nil clock defaults to SystemClock.
func New(clock Clock) *Generator {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Generator{clock: clock}
}

// Now returns the generator's current time
func (g *Generator) Now() time.Time {
	return g.clock.Now()
}

// NewLogID returns a 20-character ID: a millisecond timestamp prefix that
// keeps IDs sortable, plus a random suffix for uniqueness within one tick.
func (g *Generator) NewLogID() string {
	now := g.clock.Now()
	prefix := fmt.Sprintf("%s%03d", now.Format("060102150405"), now.Nanosecond()/int(time.Millisecond))
	suffix := uuid.New().String()[:LogIDWidth-len(prefix)]
	return prefix + suffix
}
