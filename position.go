package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// Position is a cell coordinate with independent absolute/relative flags per
// axis. Row and Col are zero-based; AbsRow/AbsCol record whether the axis was
// written with a leading '$' in the source text. The absolute flags are
// metadata only — they never participate in equality or ordering, and only
// affect how a reference is rewritten by Sheet.CopyRect.
type Position struct {
	Row    int32
	Col    int32
	AbsRow bool
	AbsCol bool
}

// Less orders positions lexicographically on (Row, Col), ignoring the
// absolute flags, matching the ordering Sheet uses when it needs a
// deterministic walk of its cells (Save, and test probes).
func (p Position) Less(other Position) bool {
	if p.Row != other.Row {
		return p.Row < other.Row
	}
	return p.Col < other.Col
}

// Equal compares the coordinate only; absolute flags are not part of a
// Position's identity.
func (p Position) Equal(other Position) bool {
	return p.Row == other.Row && p.Col == other.Col
}

// String renders the position in `[$]COL[$]ROW` form, e.g. "$A1", "B$2".
func (p Position) String() string {
	var b strings.Builder
	if p.AbsCol {
		b.WriteByte('$')
	}
	b.WriteString(columnLetters(p.Col))
	if p.AbsRow {
		b.WriteByte('$')
	}
	b.WriteString(strconv.FormatInt(int64(p.Row), 10))
	return b.String()
}

// columnLetters renders a zero-based column index as bijective base-26
// letters: 0 -> "A", 25 -> "Z", 26 -> "AA", ...
func columnLetters(col int32) string {
	if col < 0 {
		return ""
	}
	var buf [16]byte
	i := len(buf)
	n := int64(col) + 1
	for n > 0 {
		n--
		i--
		buf[i] = byte('A' + n%26)
		n /= 26
	}
	return string(buf[i:])
}

// ParsePosition parses `[$]letters[$]digits`, case-insensitive in the
// letters, with a non-negative row. It fails with a structural
// *FormatError wrapping ErrInvalidPosition when any stage is empty, the row
// is signed, or there is trailing garbage after the digits.
func ParsePosition(s string) (Position, error) {
	i := 0
	var pos Position

	if i < len(s) && s[i] == '$' {
		pos.AbsCol = true
		i++
	}

	letterStart := i
	for i < len(s) && isASCIILetter(s[i]) {
		i++
	}
	if i == letterStart {
		return Position{}, invalidPosition(s, "missing column letters")
	}
	col, err := lettersToColumn(s[letterStart:i])
	if err != nil {
		return Position{}, invalidPosition(s, err.Error())
	}
	pos.Col = col

	if i < len(s) && s[i] == '$' {
		pos.AbsRow = true
		i++
	}

	digitStart := i
	for i < len(s) && isASCIIDigit(s[i]) {
		i++
	}
	if i == digitStart {
		return Position{}, invalidPosition(s, "missing row digits")
	}
	if i != len(s) {
		return Position{}, invalidPosition(s, "trailing characters after row")
	}

	row, err := strconv.ParseInt(s[digitStart:i], 10, 32)
	if err != nil {
		return Position{}, invalidPosition(s, "row out of range")
	}
	pos.Row = int32(row)

	return pos, nil
}

// lettersToColumn converts a run of ASCII letters to a zero-based column
// index using bijective base-26: value = Σ (letter-'A'+1)·26^k, then the
// result is shifted down by one since the encoding has no zero digit.
func lettersToColumn(letters string) (int32, error) {
	var value int64
	for _, c := range letters {
		c = upperASCII(c)
		if c < 'A' || c > 'Z' {
			return 0, fmt.Errorf("invalid column letter %q", c)
		}
		value = value*26 + int64(c-'A'+1)
		if value > (1<<31)-1 {
			return 0, fmt.Errorf("column out of range")
		}
	}
	return int32(value - 1), nil
}

func isASCIILetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func isASCIIDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func upperASCII(c rune) rune {
	if c >= 'a' && c <= 'z' {
		return c - 'a' + 'A'
	}
	return c
}

func invalidPosition(raw, reason string) error {
	return &FormatError{
		Code:    ErrInvalidPosition,
		Message: fmt.Sprintf("invalid position %q: %s", raw, reason),
	}
}
