package gcode

import "testing"

func TestParseLineBasic(t *testing.T) {
	p := NewParser()
	cmd, err := p.ParseLine("G1 X10.5 Y-3 F1500")
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	if cmd.Letter != 'G' || cmd.Number != 1 {
		t.Fatalf("expected G1, got %c%v", cmd.Letter, cmd.Number)
	}
	if cmd.Word('X', 0) != 10.5 || cmd.Word('Y', 0) != -3 || cmd.Word('F', 0) != 1500 {
		t.Fatalf("unexpected words: %+v", cmd.Words)
	}
}

func TestParseLineSubcode(t *testing.T) {
	p := NewParser()
	cmd, err := p.ParseLine("G38.2 Z-10 F50")
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	if !cmd.Is('G', 38) {
		t.Fatalf("expected G38.x, got %c%v", cmd.Letter, cmd.Number)
	}
	if cmd.Number != 38.2 {
		t.Fatalf("expected subcode .2, got %v", cmd.Number)
	}
}

func TestParseBlankAndComment(t *testing.T) {
	p := NewParser()
	for _, line := range []string{"", "   ", "; a comment", "(also a comment)"} {
		if _, err := p.ParseLine(line); err != ErrBlankLine {
			t.Fatalf("line %q: expected ErrBlankLine, got %v", line, err)
		}
	}
}

func TestHasWord(t *testing.T) {
	p := NewParser()
	cmd, _ := p.ParseLine("M3 S1000")
	if !cmd.HasWord('S') {
		t.Fatalf("expected S word present")
	}
	if cmd.HasWord('X') {
		t.Fatalf("expected X word absent")
	}
}
