package engine

import (
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/sheetcore/engine/internal/formula"
)

// Capability flags returned by Sheet.Capabilities, per §6. These are
// advisory (open question c in §9): a static description of what this
// engine type supports in general, not a live negotiation.
const (
	CapCyclicDeps uint32 = 0x01
	CapFunctions  uint32 = 0x02
	CapFileIO     uint32 = 0x04
	CapSpeed      uint32 = 0x08
)

// Sheet is an ordered mapping Position -> Cell (§3). It owns its cells
// outright; a Ref node inside a cell's program is only ever a Position, a
// key into this map, never a pointer to another Cell — so cells have no
// way to outlive or alias one another's identity.
type Sheet struct {
	cells  map[Position]*Cell
	logger Logger
}

// NewSheet returns an empty sheet.
func NewSheet(opts ...Option) *Sheet {
	s := &Sheet{
		cells:  make(map[Position]*Cell),
		logger: noopLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Capabilities reports CYCLIC_DEPS|FILE_IO: cycles are contained (never
// crash, always resolve to Undefined) and Save/Load round-trip a sheet.
// FUNCTIONS is unset because Func/Range nodes are reserved-but-undefined,
// never actually evaluated (§9 open question c); SPEED advertises nothing
// either, since this engine favors a simple tree-walking evaluator over a
// cached incremental one.
func (s *Sheet) Capabilities() uint32 {
	return CapCyclicDeps | CapFileIO
}

// cellAt is the lookup RefOp.evalLeaf uses to follow a reference back into
// the sheet without ever holding a pointer across calls. The absolute flags
// are dropped from the lookup key, since they are not part of a Position's
// identity.
func (s *Sheet) cellAt(pos Position) (*Cell, bool) {
	c, ok := s.cells[Position{Row: pos.Row, Col: pos.Col}]
	return c, ok
}

// SetCell stores text at pos and reports whether it was accepted. A
// leading '=' invokes the formula parser; anything else is a number
// literal (if it fully parses as one) or plain text — see SetCellErr for
// the structural error a caller can recover via errors.As.
func (s *Sheet) SetCell(pos Position, text string) bool {
	return s.SetCellErr(pos, text) == nil
}

// SetCellErr is SetCell's error-returning counterpart (§7): on failure the
// sheet is left exactly as it was before the call.
func (s *Sheet) SetCellErr(pos Position, text string) error {
	pos = Position{Row: pos.Row, Col: pos.Col}
	if strings.HasPrefix(text, "=") {
		b := NewExpressionBuilder()
		if err := formula.Parse(text, b); err != nil {
			s.logger.Printf("setCell %s rejected: %v", pos, err)
			return &FormatError{Code: ErrInvalidFormula, Message: err.Error()}
		}
		if err := b.Err(); err != nil {
			s.logger.Printf("setCell %s rejected: %v", pos, err)
			return err
		}
		s.cells[pos] = newCell(b.Program())
		return nil
	}

	if text == "" {
		s.cells[pos] = newCell([]Operation{StrOp{Value: ""}})
		return nil
	}

	// A literal number string must consume the entire input (§9 open
	// question b): strconv.ParseFloat already rejects any trailing
	// garbage, so "12abc" falls through to the text branch below rather
	// than being coerced from its numeric prefix.
	if v, err := strconv.ParseFloat(text, 64); err == nil {
		s.cells[pos] = newCell([]Operation{NumOp{Value: v}})
		return nil
	}

	s.cells[pos] = newCell([]Operation{StrOp{Value: text}})
	return nil
}

// GetValue evaluates the cell at pos, or returns Undefined if pos was
// never written or its program is empty (§4.6).
func (s *Sheet) GetValue(pos Position) Value {
	cell, ok := s.cellAt(pos)
	if !ok {
		return Undefined
	}
	return cell.evaluate(s)
}

// CopyCell is CopyRect with the default 1x1 rectangle from §6's
// `copyRect(dst, src, w=1, h=1)`.
func (s *Sheet) CopyCell(dst, src Position) {
	s.CopyRect(dst, src, 1, 1)
}

// CopyRect clones the w x h rectangle of cells rooted at src into the
// rectangle rooted at dst, translating every relative Ref component by the
// rectangle's offset (§4.6). Source and destination may overlap: every
// read is staged into a temporary map before any write lands, so the
// result never depends on scan order.
func (s *Sheet) CopyRect(dst, src Position, w, h int) {
	if w <= 0 || h <= 0 {
		return
	}
	dRow := dst.Row - src.Row
	dCol := dst.Col - src.Col

	staged := make(map[Position]*Cell, w*h)
	for dy := 0; dy < h; dy++ {
		for dx := 0; dx < w; dx++ {
			srcPos := Position{Row: src.Row + int32(dy), Col: src.Col + int32(dx)}
			dstPos := Position{Row: dst.Row + int32(dy), Col: dst.Col + int32(dx)}

			cell, ok := s.cells[srcPos]
			if !ok || len(cell.program) == 0 {
				staged[dstPos] = nil
				continue
			}
			clone := cloneProgram(cell.program)
			translateRefs(clone, dRow, dCol)
			staged[dstPos] = newCell(clone)
		}
	}

	for pos, cell := range staged {
		if cell == nil {
			delete(s.cells, pos)
		} else {
			s.cells[pos] = cell
		}
	}
	s.logger.Printf("copyRect dst=%s src=%s w=%d h=%d committed", dst, src, w, h)
}

// Save writes the sheet to w and reports success (§6). See SaveErr for the
// structural error.
func (s *Sheet) Save(w io.Writer) bool {
	return s.SaveErr(w) == nil
}

// SaveErr encodes every cell, ordered lexicographically by Position so
// that saving an unmodified sheet twice produces identical bytes.
func (s *Sheet) SaveErr(w io.Writer) error {
	positions := make([]Position, 0, len(s.cells))
	for pos := range s.cells {
		positions = append(positions, pos)
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i].Less(positions[j]) })

	if err := encodeSheet(w, positions, s.cells); err != nil {
		err = normalizeIOErr(err)
		s.logger.Printf("save failed: %v", err)
		return err
	}
	s.logger.Printf("save wrote %d cells", len(positions))
	return nil
}

// Load replaces the sheet's contents with the SheetFile read from r and
// reports success (§6). On any failure the live sheet is left untouched.
func (s *Sheet) Load(r io.Reader) bool {
	return s.LoadErr(r) == nil
}

// LoadErr reads r fully into a staging map and only swaps it into s once
// decoding succeeds end to end — a short read, unknown type tag, or
// corrupted frame partway through aborts with the old sheet intact.
func (s *Sheet) LoadErr(r io.Reader) error {
	cells, err := decodeSheet(r)
	if err != nil {
		err = normalizeIOErr(err)
		s.logger.Printf("load failed, sheet unchanged: %v", err)
		return err
	}
	s.cells = cells
	s.logger.Printf("load replaced sheet with %d cells", len(cells))
	return nil
}

func normalizeIOErr(err error) error {
	if err == nil {
		return nil
	}
	if fe, ok := err.(*FormatError); ok {
		return fe
	}
	return &FormatError{Code: ErrIoFailure, Message: err.Error()}
}
