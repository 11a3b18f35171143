package console

import "testing"

func TestWritePlacesCharactersAndAdvancesCursor(t *testing.T) {
	c := NewTextConsole()
	c.Write([]byte("hi"))

	row, col := c.Cursor()
	if row != 0 || col != 2 {
		t.Fatalf("got cursor (%d,%d), want (0,2)", row, col)
	}
	if got := c.Line(0)[:2]; got != "hi" {
		t.Fatalf("got %q, want %q", got, "hi")
	}
}

func TestNewlineResetsColumnAndAdvancesRow(t *testing.T) {
	c := NewTextConsole()
	c.Write([]byte("a\nb"))

	row, col := c.Cursor()
	if row != 1 || col != 1 {
		t.Fatalf("got cursor (%d,%d), want (1,1)", row, col)
	}
}

func TestLineWrapAtColumnLimit(t *testing.T) {
	c := NewTextConsole()
	for i := 0; i < Columns+1; i++ {
		c.PutChar('x')
	}
	row, col := c.Cursor()
	if row != 1 || col != 1 {
		t.Fatalf("got cursor (%d,%d), want (1,1) after wrap", row, col)
	}
}

func TestScrollUpWhenPastLastRow(t *testing.T) {
	c := NewTextConsole()
	for r := 0; r < Rows+2; r++ {
		c.Write([]byte("line"))
		c.PutChar('\n')
	}

	row, _ := c.Cursor()
	if row != Rows-1 {
		t.Fatalf("expected cursor pinned to last row after scrolling, got %d", row)
	}
}

func TestSetCursorClampsToGrid(t *testing.T) {
	c := NewTextConsole()
	c.SetCursor(-5, 1000)
	row, col := c.Cursor()
	if row != 0 || col != Columns-1 {
		t.Fatalf("got (%d,%d), want clamped to (0,%d)", row, col, Columns-1)
	}
}
