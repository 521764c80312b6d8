package sourcemap

import "testing"

func TestLineColumn(t *testing.T) {
	m := NewMap()
	loc := m.AddFile("a.swift", []byte("line one\nline two\nline three"))
	l0 := loc(0)
	if line, col := m.LineColumn(l0); line != 1 || col != 1 {
		t.Fatalf("LineColumn(0) = (%d,%d), want (1,1)", line, col)
	}
	l1 := loc(9) // first byte of "line two"
	if line, col := m.LineColumn(l1); line != 2 || col != 1 {
		t.Fatalf("LineColumn(9) = (%d,%d), want (2,1)", line, col)
	}
}

func TestExtractText(t *testing.T) {
	m := NewMap()
	loc := m.AddFile("a.swift", []byte("abcdef"))
	r := Range{Start: loc(1), End: loc(4)}
	if got := string(m.ExtractText(r)); got != "bcd" {
		t.Fatalf("ExtractText = %q, want %q", got, "bcd")
	}
}

func TestLocForEndOfLine(t *testing.T) {
	m := NewMap()
	loc := m.AddFile("a.swift", []byte("abc\ndef"))
	end := m.LocForEndOfLine(loc(1))
	if line, col := m.LineColumn(end); line != 1 || col != 3 {
		t.Fatalf("LocForEndOfLine -> (%d,%d), want (1,3)", line, col)
	}
}

func TestIndentationForLine(t *testing.T) {
	m := NewMap()
	loc := m.AddFile("a.swift", []byte("  indented\nnotindented"))
	if got := string(m.IndentationForLine(loc(4))); got != "  " {
		t.Fatalf("IndentationForLine = %q, want %q", got, "  ")
	}
	if got := string(m.IndentationForLine(loc(11))); got != "" {
		t.Fatalf("IndentationForLine = %q, want empty", got)
	}
}

func TestInvalidLoc(t *testing.T) {
	var l Loc
	if l.IsValid() {
		t.Fatalf("zero Loc reported valid")
	}
}
