// internal/idgen/snowflake.go
package idgen

import (
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"
)

// Bit layout, most significant first:
// [1 unused sign bit][41 bits ms since Epoch][10 bits node id][12 bits sequence]
const (
	timestampBits = 41
	nodeBits      = 10
	sequenceBits  = 12

	MaxNodeID   = -1 ^ (-1 << nodeBits)
	maxSequence = -1 ^ (-1 << sequenceBits)
	maxElapsed  = -1 ^ (-1 << timestampBits)

	nodeShift      = sequenceBits
	timestampShift = sequenceBits + nodeBits
)

// Epoch is 2015-01-01T00:00:00Z in unix milliseconds. Every id minted after
// mid-2022 has exactly 19 decimal digits until the 41-bit range runs out in
// 2084, so the decimal strings of ids compare lexicographically in the same
// order as their numeric values.
const Epoch int64 = 1420070400000

const DefaultMaxBackwardWait = 5 * time.Millisecond

var (
	ErrClockRegression     = errors.New("clock moved backwards")
	ErrInvalidNodeID       = fmt.Errorf("node id must be between 0 and %d", MaxNodeID)
	ErrTimestampOutOfRange = errors.New("clock is outside the id epoch range")
)

// ClockRegressionError is returned when the wall clock is behind the last
// minted timestamp for longer than the configured tolerance.
type ClockRegressionError struct {
	LastMillis     int64
	ObservedMillis int64
}

func (e *ClockRegressionError) Error() string {
	return fmt.Sprintf("clock moved backwards by %dms (last=%d observed=%d)",
		e.LastMillis-e.ObservedMillis, e.LastMillis, e.ObservedMillis)
}

func (e *ClockRegressionError) Is(target error) bool {
	return target == ErrClockRegression
}

// Clock supplies wall-clock milliseconds.
type Clock interface {
	NowMillis() int64
}

type systemClock struct{}

func (systemClock) NowMillis() int64 { return time.Now().UnixMilli() }

// SystemClock reads time.Now.
var SystemClock Clock = systemClock{}

type Options struct {
	NodeID int64
	Clock  Clock

	// MaxBackwardWait bounds how long NextID blocks waiting for a clock
	// that moved backwards to catch up. Zero means DefaultMaxBackwardWait.
	MaxBackwardWait time.Duration

	// Sleep is used while waiting out a clock regression. Defaults to time.Sleep.
	Sleep func(time.Duration)

	// OnClockRegression is called once per detected regression with the
	// observed drift and whether the wait resolved it.
	OnClockRegression func(drift time.Duration, recovered bool)
}

// Generator mints time-ordered 64-bit ids. It is safe for concurrent use.
type Generator struct {
	mu         sync.Mutex
	lastMillis int64
	sequence   int64

	nodeID       int64
	clock        Clock
	maxWait      time.Duration
	sleep        func(time.Duration)
	onRegression func(time.Duration, bool)
}

func New(opts Options) (*Generator, error) {
	if opts.NodeID < 0 || opts.NodeID > MaxNodeID {
		return nil, ErrInvalidNodeID
	}

	g := &Generator{
		nodeID:       opts.NodeID,
		clock:        opts.Clock,
		maxWait:      opts.MaxBackwardWait,
		sleep:        opts.Sleep,
		onRegression: opts.OnClockRegression,
	}
	if g.clock == nil {
		g.clock = SystemClock
	}
	if g.maxWait <= 0 {
		g.maxWait = DefaultMaxBackwardWait
	}
	if g.sleep == nil {
		g.sleep = time.Sleep
	}

	return g, nil
}

// NodeID returns the node discriminator embedded in every id.
func (g *Generator) NodeID() int64 {
	return g.nodeID
}

// NextID returns the next id. Ids from one Generator are strictly increasing
// and always positive.
func (g *Generator) NextID() (uint64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock.NowMillis()
	if now < g.lastMillis {
		var err error
		if now, err = g.waitForClock(now); err != nil {
			return 0, err
		}
	}
	if now <= Epoch || now-Epoch > maxElapsed {
		return 0, ErrTimestampOutOfRange
	}

	if now == g.lastMillis {
		g.sequence = (g.sequence + 1) & maxSequence
		if g.sequence == 0 {
			now = g.untilNextMillis(g.lastMillis)
		}
	} else {
		g.sequence = 0
	}
	g.lastMillis = now

	id := (now-Epoch)<<timestampShift | g.nodeID<<nodeShift | g.sequence
	return uint64(id), nil
}

// NextIDString returns NextID in decimal form.
func (g *Generator) NextIDString() (string, error) {
	id, err := g.NextID()
	if err != nil {
		return "", err
	}
	return strconv.FormatUint(id, 10), nil
}

// waitForClock blocks until the clock reaches lastMillis again, giving up
// once the drift or the total wait exceeds maxWait. Called with mu held.
func (g *Generator) waitForClock(now int64) (int64, error) {
	drift := time.Duration(g.lastMillis-now) * time.Millisecond
	if drift > g.maxWait {
		g.notifyRegression(drift, false)
		return 0, &ClockRegressionError{LastMillis: g.lastMillis, ObservedMillis: now}
	}

	var waited time.Duration
	for now < g.lastMillis {
		if waited > g.maxWait {
			g.notifyRegression(drift, false)
			return 0, &ClockRegressionError{LastMillis: g.lastMillis, ObservedMillis: now}
		}
		pause := time.Duration(g.lastMillis-now) * time.Millisecond
		g.sleep(pause)
		waited += pause
		now = g.clock.NowMillis()
	}

	g.notifyRegression(drift, true)
	return now, nil
}

func (g *Generator) untilNextMillis(last int64) int64 {
	now := g.clock.NowMillis()
	for now <= last {
		runtime.Gosched()
		now = g.clock.NowMillis()
	}
	return now
}

func (g *Generator) notifyRegression(drift time.Duration, recovered bool) {
	if g.onRegression != nil {
		g.onRegression(drift, recovered)
	}
}

// Parts is the decoded form of an id.
type Parts struct {
	Time     time.Time
	NodeID   int64
	Sequence int64
}

// Decompose splits an id back into its timestamp, node and sequence fields.
func Decompose(id uint64) Parts {
	v := int64(id)
	return Parts{
		Time:     time.UnixMilli((v >> timestampShift) + Epoch).UTC(),
		NodeID:   (v >> nodeShift) & MaxNodeID,
		Sequence: v & maxSequence,
	}
}

// ParseString parses the decimal form produced by NextIDString.
func ParseString(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 63)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return id, nil
}
