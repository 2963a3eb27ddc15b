package lexer

import (
	"bytes"
	"fmt"

	"fortio.org/safecast"

	"cffi/internal/source"
)

// Cursor walks the bytes of one header.
type Cursor struct {
	File *source.File
	Off  uint32
	end  uint32
}

// NewCursor creates a cursor at the start of f.
func NewCursor(f *source.File) Cursor {
	end, err := safecast.Conv[uint32](len(f.Content))
	if err != nil {
		panic(fmt.Errorf("header too large: %w", err))
	}
	return Cursor{File: f, end: end}
}

func (c *Cursor) EOF() bool { return c.Off >= c.end }

// Peek returns the current byte, 0 at EOF.
func (c *Cursor) Peek() byte { return c.PeekAt(0) }

// PeekAt returns the byte n positions ahead, 0 past the end.
func (c *Cursor) PeekAt(n uint32) byte {
	if c.Off+n >= c.end {
		return 0
	}
	return c.File.Content[c.Off+n]
}

// HasPrefix reports whether the remaining input starts with s.
func (c *Cursor) HasPrefix(s string) bool {
	return bytes.HasPrefix(c.File.Content[c.Off:c.end], []byte(s))
}

// Bump consumes one byte and returns it.
func (c *Cursor) Bump() byte {
	if c.EOF() {
		return 0
	}
	b := c.File.Content[c.Off]
	c.Off++
	return b
}

// Eat consumes b if it is next.
func (c *Cursor) Eat(b byte) bool {
	if c.EOF() || c.File.Content[c.Off] != b {
		return false
	}
	c.Off++
	return true
}

// EatString consumes s if the input starts with it.
func (c *Cursor) EatString(s string) bool {
	if !c.HasPrefix(s) {
		return false
	}
	c.Off += uint32(len(s))
	return true
}

// SkipWhile consumes bytes while keep holds and reports whether it moved.
func (c *Cursor) SkipWhile(keep func(byte) bool) bool {
	from := c.Off
	for !c.EOF() && keep(c.File.Content[c.Off]) {
		c.Off++
	}
	return c.Off > from
}

// SkipPast consumes everything up to and including the next s. Without
// a match it stops at EOF and returns false.
func (c *Cursor) SkipPast(s string) bool {
	i := bytes.Index(c.File.Content[c.Off:c.end], []byte(s))
	if i < 0 {
		c.Off = c.end
		return false
	}
	c.Off += uint32(i + len(s))
	return true
}

// Mark: сохранённая позиция для SpanFrom и TextFrom.
type Mark uint32

func (c *Cursor) Mark() Mark { return Mark(c.Off) }

// SpanFrom returns the span from m to the cursor.
func (c *Cursor) SpanFrom(m Mark) source.Span {
	return source.Span{File: c.File.ID, Start: uint32(m), End: c.Off}
}

// TextFrom returns the bytes consumed since m.
func (c *Cursor) TextFrom(m Mark) string {
	return string(c.File.Content[m:c.Off])
}
