// Package gcode holds the structured representation of a parsed G-code
// block, plus a one-line tokenizer (ParseLine in parser.go). Line framing
// (checksum/line-number stripping) is left to the caller; this
// package exists so the canonical machine has a stable type to consume
// rather than depending on a specific upstream parser. The Command/Word
// shape and the tokenizer in parser.go are adapted from the teacher's
// standalone/gcode/parser.go, trimmed to what the canonical machine needs
// and fixing the teacher's illegal cross-package method receiver (methods
// here are declared on gcode.Command, not borrowed from another package).
package gcode

import "sort"

// Command is one parsed line: a letter code (G, M, or T) with an optional
// decimal sub-code (G38.2, G92.1, G61.1) and its word parameters.
type Command struct {
	Letter byte
	Number float64 // supports subcodes, e.g. 38.2
	Words  map[byte]float64
	Line   int
}

// HasWord reports whether word was present on the line.
func (c *Command) HasWord(word byte) bool {
	_, ok := c.Words[word]
	return ok
}

// Word returns the value of word, or def if absent.
func (c *Command) Word(word byte, def float64) float64 {
	if v, ok := c.Words[word]; ok {
		return v
	}
	return def
}

// WordLetters returns the present word letters in sorted order, for
// deterministic iteration (logging, status echo).
func (c *Command) WordLetters() []byte {
	letters := make([]byte, 0, len(c.Words))
	for l := range c.Words {
		letters = append(letters, l)
	}
	sort.Slice(letters, func(i, j int) bool { return letters[i] < letters[j] })
	return letters
}

// Is reports whether the command is the given letter/number pair. With no
// further argument it matches by integer code only, ignoring any subcode
// (G38.2.Is('G', 38) is true). With one further argument it additionally
// requires that exact subcode (Is('G', 90, 1) matches G90.1 only).
func (c *Command) Is(letter byte, number int, subcode ...int) bool {
	if c.Letter != letter || int(c.Number) != number {
		return false
	}
	if len(subcode) == 0 {
		return true
	}
	want := float64(number) + float64(subcode[0])/10
	return approxEqual(c.Number, want)
}

func approxEqual(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-6
}
