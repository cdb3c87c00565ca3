// Package settings implements the token-addressed tunable registry and its
// journaled persistence, the TinyG-dialect equivalent of $-group settings.
package settings

import (
	"errors"
	"fmt"
)

// ValueType selects how a token's value is interpreted and, for persistent
// tokens, how its slot is encoded on disk.
type ValueType uint8

const (
	TypeFloat ValueType = iota
	TypeInt
	TypeBool
)

// Flags controls registry and persistence behavior for a single token.
type Flags uint8

const (
	FlagPersistent Flags = 1 << iota // has a slot in the journaled state array
	FlagReadOnly                     // Set() always fails
)

var (
	ErrUnknownToken = errors.New("settings: unknown token")
	ErrReadOnly     = errors.New("settings: token is read-only")
	ErrOutOfRange   = errors.New("settings: value out of range")
)

// Token describes one addressable tunable: g54x, xvm, xjm, and so on.
type Token struct {
	Name        string // canonical short token, e.g. "xvm"
	Group       string // owning group, e.g. "x", "g54", "" for globals
	Type        ValueType
	Flags       Flags
	PrintFormat string // fmt verb used by Format, e.g. "%.3f"

	Min, Max float64 // inclusive range; Min == Max disables range checking

	Get func() float64
	Set func(float64) error

	// OnChange runs after a successful Set, with the pre- and post-change
	// values, so registrants can recompute derived state (max_junction_accel
	// from jerk, steps_per_unit resync through kinematics) without the
	// registry itself knowing about those relationships.
	OnChange func(old, new float64)

	index int // canonical slot index for persistent tokens, assigned at Register
}

// Registry is the live set of tokens a machine exposes, ordered by
// registration so persisted slot indices never move once set.
type Registry struct {
	tokens    map[string]*Token
	order     []string
	nextSlot  int
}

func NewRegistry() *Registry {
	return &Registry{tokens: make(map[string]*Token)}
}

// Register adds a token. Persistent tokens are assigned the next free slot
// index in registration order; callers should register persistent tokens in
// a stable order across firmware versions so journal replay stays valid.
func (r *Registry) Register(t Token) (*Token, error) {
	if t.Name == "" {
		return nil, errors.New("settings: token must have a name")
	}
	if _, exists := r.tokens[t.Name]; exists {
		return nil, fmt.Errorf("settings: token %q already registered", t.Name)
	}
	tok := t
	if tok.Flags&FlagPersistent != 0 {
		tok.index = r.nextSlot
		r.nextSlot++
	}
	r.tokens[tok.Name] = &tok
	r.order = append(r.order, tok.Name)
	return &tok, nil
}

func (r *Registry) Lookup(name string) (*Token, bool) {
	t, ok := r.tokens[name]
	return t, ok
}

// Tokens returns every registered token name in registration order.
func (r *Registry) Tokens() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Registry) Get(name string) (float64, error) {
	t, ok := r.tokens[name]
	if !ok {
		return 0, ErrUnknownToken
	}
	return t.Get(), nil
}

// Set validates range, applies the token's setter, then fires OnChange with
// the before/after values.
func (r *Registry) Set(name string, v float64) error {
	t, ok := r.tokens[name]
	if !ok {
		return ErrUnknownToken
	}
	if t.Flags&FlagReadOnly != 0 {
		return ErrReadOnly
	}
	if t.Min != t.Max && (v < t.Min || v > t.Max) {
		return fmt.Errorf("%w: %s must be in [%g, %g], got %g", ErrOutOfRange, name, t.Min, t.Max, v)
	}
	old := t.Get()
	if err := t.Set(v); err != nil {
		return err
	}
	if t.OnChange != nil {
		t.OnChange(old, v)
	}
	return nil
}

// Format renders a token's current value using its PrintFormat, defaulting
// to a plain %v when none was supplied.
func (r *Registry) Format(name string) (string, error) {
	t, ok := r.tokens[name]
	if !ok {
		return "", ErrUnknownToken
	}
	format := t.PrintFormat
	if format == "" {
		format = "%v"
	}
	return fmt.Sprintf(format, t.Get()), nil
}
