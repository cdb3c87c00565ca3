package settings

import (
	"encoding/binary"
	"errors"
	"math"

	"motioncore/core"
	"motioncore/protocol"
)

// Medium is the minimal storage surface the settings journal needs. Hosts
// back it with a file pair; firmware builds back it with a reserved flash
// region. Keeping it this small lets the journal itself stay free of any
// os or flash-driver import, the same closure-injection style used for
// pinio's wire access.
type Medium interface {
	ReadSlot(slot int) ([]byte, error)  // slot is 0 or 1; ErrSlotEmpty if never written
	WriteSlot(slot int, data []byte) error
}

var ErrSlotEmpty = errors.New("settings: slot has never been written")

// ErrWritesAbandoned is returned by Periodic when MaxWriteFailures
// consecutive Save attempts have failed; the dirty batch is dropped rather
// than retried forever, matching g2core's sd_persistence.cpp give-up path.
var ErrWritesAbandoned = errors.New("settings: persistence writes abandoned after repeated failures")

const recordHeaderSize = 4 // generation counter

// MaxWriteFailures mirrors g2core's MAX_WRITE_FAILURES (sd_persistence.cpp):
// after this many consecutive failed write attempts, Periodic gives up on
// the current dirty batch instead of retrying indefinitely.
const MaxWriteFailures = 3

// MinWriteInterval mirrors g2core's MIN_WRITE_INTERVAL (1000ms systick gate
// in sd_persistence.cpp::periodic()), expressed in core timer ticks so
// Periodic can use the same wraparound-safe comparison the scheduler uses.
var MinWriteInterval = core.TimerFromUS(1000000)

// Store journals the registry's persistent tokens as a flat array of 4-byte
// slots across two rotating records, each trailed with a CRC32 so a crash
// mid-write never corrupts the previously committed record: Load always
// prefers the newer record with a matching checksum and falls back to the
// older one if the newer is torn.
//
// Writes are not applied to the medium immediately. MarkDirty flags the
// registry as needing a flush; Periodic is the only place an actual Save
// happens, and only once three guards all clear — the same deferred-write
// structure as g2core's persistence.cpp/sd_persistence.cpp: a dirty check,
// a minimum-write-interval coalescing gate, and a motion-in-progress guard
// (Busy) that refuses to touch the medium while the machine is moving.
type Store struct {
	Registry *Registry
	Medium   Medium

	// Busy reports whether motion is currently running; Periodic will not
	// write while it returns true, mirroring g2core's refusal to persist
	// while cm->cycle_type != CYCLE_NONE. Nil means never busy.
	Busy func() bool

	generation uint32
	lastGood   int // which slot (0/1) Load last accepted, -1 if none

	dirty         bool
	writeFailures int
	lastWriteAt   uint32
	haveWritten   bool
}

func NewStore(reg *Registry, medium Medium) *Store {
	return &Store{Registry: reg, Medium: medium, lastGood: -1}
}

// MarkDirty flags the persistent token set as changed since the last
// successful Save, so the next Periodic call will attempt to flush it.
func (s *Store) MarkDirty() {
	s.dirty = true
}

// persistentTokens returns persistent tokens ordered by their assigned slot
// index.
func (s *Store) persistentTokens() []*Token {
	out := make([]*Token, s.Registry.nextSlot)
	for _, name := range s.Registry.order {
		t := s.Registry.tokens[name]
		if t.Flags&FlagPersistent != 0 {
			out[t.index] = t
		}
	}
	return out
}

func encodeSlot(t *Token, v float64) uint32 {
	switch t.Type {
	case TypeInt, TypeBool:
		return uint32(int32(v))
	default:
		return math.Float32bits(float32(v))
	}
}

func decodeSlot(t *Token, raw uint32) float64 {
	switch t.Type {
	case TypeInt, TypeBool:
		return float64(int32(raw))
	default:
		return float64(math.Float32frombits(raw))
	}
}

// Save encodes every persistent token into a record and writes it to
// whichever of the two slots was not accepted by the last Load, so the
// other slot keeps the last-known-good record if power is lost mid-write.
func (s *Store) Save() error {
	tokens := s.persistentTokens()
	body := make([]byte, recordHeaderSize+4*len(tokens))
	s.generation++
	binary.BigEndian.PutUint32(body[0:4], s.generation)
	for i, t := range tokens {
		off := recordHeaderSize + 4*i
		if t == nil {
			continue
		}
		binary.BigEndian.PutUint32(body[off:off+4], encodeSlot(t, t.Get()))
	}
	crc := protocol.CRC32(body)
	record := make([]byte, len(body)+4)
	copy(record, body)
	binary.BigEndian.PutUint32(record[len(body):], crc)

	target := 0
	if s.lastGood == 0 {
		target = 1
	}
	if err := s.Medium.WriteSlot(target, record); err != nil {
		return err
	}
	s.lastGood = target
	return nil
}

// Load reads both slots, keeps the ones whose trailing CRC32 checks out,
// and applies the one with the higher generation counter to the registry.
// An alarm-induced power loss mid-Save leaves at most one slot torn; Load
// silently falls back to the other.
func (s *Store) Load() error {
	type candidate struct {
		slot       int
		generation uint32
		values     []uint32
	}
	var candidates []candidate

	for slot := 0; slot < 2; slot++ {
		data, err := s.Medium.ReadSlot(slot)
		if err != nil || len(data) < recordHeaderSize+4 {
			continue
		}
		body := data[:len(data)-4]
		wantCRC := binary.BigEndian.Uint32(data[len(data)-4:])
		if protocol.CRC32(body) != wantCRC {
			continue
		}
		generation := binary.BigEndian.Uint32(body[0:4])
		valueBytes := body[recordHeaderSize:]
		values := make([]uint32, len(valueBytes)/4)
		for i := range values {
			values[i] = binary.BigEndian.Uint32(valueBytes[4*i : 4*i+4])
		}
		candidates = append(candidates, candidate{slot, generation, values})
	}

	if len(candidates) == 0 {
		s.lastGood = -1
		return ErrSlotEmpty
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.generation > best.generation {
			best = c
		}
	}

	tokens := s.persistentTokens()
	for i, t := range tokens {
		if t == nil || i >= len(best.values) {
			continue
		}
		v := decodeSlot(t, best.values[i])
		if err := t.Set(v); err != nil {
			continue
		}
		if t.OnChange != nil {
			t.OnChange(v, v)
		}
	}
	s.generation = best.generation
	s.lastGood = best.slot
	return nil
}

// Periodic drives the deferred write path. It should be called regularly
// (from the same LO-tier loop that services the rest of the settings
// registry) with the current core tick time. The three guards run in the
// same order as g2core's sd_persistence.cpp::periodic(): nothing to do,
// too soon since the last write, and motion in progress. A Save failure
// increments a failure counter rather than retrying on every call; after
// MaxWriteFailures in a row the dirty batch is dropped and
// ErrWritesAbandoned is returned so the caller can raise it as an
// exception, matching the original's give-up behavior.
func (s *Store) Periodic(now uint32) error {
	if !s.dirty {
		return nil
	}
	if s.haveWritten && int32(now-s.lastWriteAt) < int32(MinWriteInterval) {
		return nil
	}
	if s.Busy != nil && s.Busy() {
		return nil
	}

	if err := s.Save(); err != nil {
		s.writeFailures++
		if s.writeFailures >= MaxWriteFailures {
			s.dirty = false
			s.writeFailures = 0
			return ErrWritesAbandoned
		}
		return err
	}

	s.dirty = false
	s.writeFailures = 0
	s.lastWriteAt = now
	s.haveWritten = true
	return nil
}
