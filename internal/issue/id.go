package issue

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ID formats accepted by NewIDGenerator.
const (
	IDFormatTimestamp = "timestamp"
	IDFormatUUID      = "uuid"
)

// IDGenerator produces issue identifiers.
type IDGenerator interface {
	NewID(now time.Time) string
}

// TimestampIDs issues millisecond Unix timestamps as decimal strings.
// When two IDs are requested in the same millisecond, or the clock steps
// backwards, the last value is bumped by one so no ID repeats.
type TimestampIDs struct {
	mu   sync.Mutex
	last int64
}

// NewID implements IDGenerator.
func (g *TimestampIDs) NewID(now time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := now.UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	return strconv.FormatInt(ms, 10)
}

// UUIDIDs issues random version 4 UUIDs.
type UUIDIDs struct{}

// NewID implements IDGenerator.
func (UUIDIDs) NewID(time.Time) string {
	return uuid.NewString()
}

// NewIDGenerator returns the generator for a configured format.
// An empty format selects timestamps.
func NewIDGenerator(format string) (IDGenerator, error) {
	switch format {
	case "", IDFormatTimestamp:
		return &TimestampIDs{}, nil
	case IDFormatUUID:
		return UUIDIDs{}, nil
	default:
		return nil, fmt.Errorf("unknown id format %q", format)
	}
}
