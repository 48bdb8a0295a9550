package ast

// Content is the textual payload of a node: either a byte range into the
// original source or a synthesized string. The set of implementations is
// closed; consumers switch over [RangeContent] and [StringContent].
type Content interface {
	// Text decodes the content against the source the tree was built from.
	Text(source []byte) string
	// Synthesized reports whether the content was produced by a transform
	// rather than read from the source.
	Synthesized() bool

	content()
}

// Point is a zero-based row/column position in the source.
type Point struct {
	Row    uint32
	Column uint32
}

// RangeContent references bytes that existed in the source at parse time.
type RangeContent struct {
	StartPoint Point
	EndPoint   Point
	StartByte  uint32
	EndByte    uint32
}

// Text returns the referenced source bytes, or an empty string when the
// range does not fit the source.
func (rc RangeContent) Text(source []byte) string {
	if rc.StartByte > rc.EndByte || int(rc.EndByte) > len(source) {
		return ""
	}

	return string(source[rc.StartByte:rc.EndByte])
}

// Synthesized always returns false for range content.
func (rc RangeContent) Synthesized() bool { return false }

func (RangeContent) content() {}

// StringContent is owned text created by a transform.
type StringContent string

// Text returns the string itself; the source is ignored.
func (sc StringContent) Text(_ []byte) string {
	return string(sc)
}

// Synthesized always returns true for string content.
func (sc StringContent) Synthesized() bool { return true }

func (StringContent) content() {}

// Str is shorthand for StringContent.
func Str(s string) Content {
	return StringContent(s)
}

// Span builds range content from byte offsets on a single line.
func Span(startByte, endByte uint32) Content {
	return RangeContent{
		StartByte:  startByte,
		EndByte:    endByte,
		StartPoint: Point{Row: 0, Column: startByte},
		EndPoint:   Point{Row: 0, Column: endByte},
	}
}
