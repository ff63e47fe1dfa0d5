// Package id generates 53-bit unique identifiers that survive a round
// trip through JavaScript's Number type.
package id

import (
	"fmt"
	"sync"
	"time"
)

// Bit layout, high to low: 41-bit millisecond timestamp, 2-bit
// datacenter id, 4-bit server id, 6-bit sequence. 53 bits total.
const (
	serverIDBits     = 4
	datacenterIDBits = 2
	sequenceBits     = 6

	maxServerID     = -1 ^ (-1 << serverIDBits)
	maxDatacenterID = -1 ^ (-1 << datacenterIDBits)
	sequenceMask    = -1 ^ (-1 << sequenceBits)

	serverIDShift      = sequenceBits
	datacenterIDShift  = sequenceBits + serverIDBits
	timestampLeftShift = sequenceBits + serverIDBits + datacenterIDBits

	// epoch is 2023-01-11 00:00:00 UTC in milliseconds.
	epoch int64 = 1673366400000
)

// ErrClockBackwards is returned when the wall clock moved behind the
// last issued timestamp.
type ErrClockBackwards struct {
	Last int64
	Now  int64
}

func (e *ErrClockBackwards) Error() string {
	return fmt.Sprintf("clock moved backwards, refusing to generate id until %d (now %d)", e.Last, e.Now)
}

// Generator issues snowflake ids for one shard. Safe for concurrent use.
type Generator struct {
	mu            sync.Mutex
	serverID      int64
	datacenterID  int64
	sequence      int64
	lastTimestamp int64
	now           func() int64
}

// NewGenerator validates the shard identity and returns a generator.
func NewGenerator(serverID, datacenterID int64) (*Generator, error) {
	if serverID < 0 || serverID > maxServerID {
		return nil, fmt.Errorf("server id %d out of range [0, %d]", serverID, maxServerID)
	}
	if datacenterID < 0 || datacenterID > maxDatacenterID {
		return nil, fmt.Errorf("datacenter id %d out of range [0, %d]", datacenterID, maxDatacenterID)
	}
	return &Generator{
		serverID:      serverID,
		datacenterID:  datacenterID,
		lastTimestamp: -1,
		now:           nowMillis,
	}, nil
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// Next returns a new id. Within one millisecond up to 64 ids are
// issued; on sequence wrap it busy-waits for the next millisecond.
func (g *Generator) Next() (uint64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	ts := g.now()
	if ts < g.lastTimestamp {
		return 0, &ErrClockBackwards{Last: g.lastTimestamp, Now: ts}
	}

	if ts == g.lastTimestamp {
		g.sequence = (g.sequence + 1) & sequenceMask
		if g.sequence == 0 {
			for ts <= g.lastTimestamp {
				ts = g.now()
			}
		}
	} else {
		g.sequence = 0
	}
	g.lastTimestamp = ts

	id := (ts-epoch)<<timestampLeftShift |
		g.datacenterID<<datacenterIDShift |
		g.serverID<<serverIDShift |
		g.sequence
	return uint64(id), nil
}

// LevelSince returns milliseconds elapsed since the generator epoch.
// Rows default their ordering level to this value so that newer rows
// sort after older ones without an extra sequence column.
func LevelSince() int64 {
	return time.Now().UnixMilli() - epoch
}

var (
	defaultGen  *Generator
	defaultOnce sync.Once
)

// Init configures the process-wide generator. Must be called before
// Next when the shard identity is not 0/0.
func Init(serverID, datacenterID int64) error {
	gen, err := NewGenerator(serverID, datacenterID)
	if err != nil {
		return err
	}
	defaultGen = gen
	return nil
}

// Default returns the process-wide generator, creating the 0/0 shard
// lazily when Init was never called.
func Default() *Generator {
	defaultOnce.Do(func() {
		if defaultGen == nil {
			defaultGen, _ = NewGenerator(0, 0)
		}
	})
	return defaultGen
}

// Next issues an id from the process-wide generator.
func Next() (uint64, error) {
	return Default().Next()
}
