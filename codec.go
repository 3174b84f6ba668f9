package engine

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// This file implements the length-prefixed binary framing described in §6.
// Each Operation variant's payload is encoded/decoded here by a type switch
// on the variant; operation.go itself holds no serialization code.
//
// Every integer on the wire is little-endian and fixed-width — a deliberate
// departure from the original's platform `size_t`/`int` (see SPEC_FULL.md's
// REDESIGN FLAGS) so a file this engine writes loads back correctly
// regardless of host word size.

const maxProgramLength = 1 << 20 // sanity bound against a corrupted length field

func ioFailure(format string, args ...any) error {
	return &FormatError{Code: ErrIoFailure, Message: fmt.Sprintf(format, args...)}
}

func writeUint8(w io.Writer, v uint8) error {
	_, err := w.Write([]byte{v})
	return err
}

func readUint8(r io.Reader) (uint8, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, ioFailure("short read (uint8): %v", err)
	}
	return buf[0], nil
}

func writeInt32(w io.Writer, v int32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(v))
	_, err := w.Write(buf[:])
	return err
}

func readInt32(r io.Reader) (int32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, ioFailure("short read (int32): %v", err)
	}
	return int32(binary.LittleEndian.Uint32(buf[:])), nil
}

func writeUint64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func readUint64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, ioFailure("short read (uint64): %v", err)
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func writeFloat64(w io.Writer, v float64) error {
	return writeUint64(w, math.Float64bits(v))
}

func readFloat64(r io.Reader) (float64, error) {
	bits, err := readUint64(r)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(bits), nil
}

func writeString(w io.Writer, s string) error {
	if err := writeUint64(w, uint64(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	n, err := readUint64(r)
	if err != nil {
		return "", err
	}
	if n > uint64(maxProgramLength) {
		return "", ioFailure("string length %d exceeds sanity bound", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", ioFailure("short read (string body): %v", err)
	}
	return string(buf), nil
}

func encodePosition(w io.Writer, p Position) error {
	if err := writeInt32(w, p.Row); err != nil {
		return err
	}
	if err := writeInt32(w, p.Col); err != nil {
		return err
	}
	var flags uint8
	if p.AbsRow {
		flags |= 1
	}
	if p.AbsCol {
		flags |= 2
	}
	return writeUint8(w, flags)
}

func decodePosition(r io.Reader) (Position, error) {
	row, err := readInt32(r)
	if err != nil {
		return Position{}, err
	}
	col, err := readInt32(r)
	if err != nil {
		return Position{}, err
	}
	flags, err := readUint8(r)
	if err != nil {
		return Position{}, err
	}
	return Position{
		Row:    row,
		Col:    col,
		AbsRow: flags&1 != 0,
		AbsCol: flags&2 != 0,
	}, nil
}

func encodeOperation(w io.Writer, op Operation) error {
	if err := writeInt32(w, int32(op.Kind())); err != nil {
		return err
	}
	switch o := op.(type) {
	case NumOp:
		return writeFloat64(w, o.Value)
	case StrOp:
		return writeString(w, o.Value)
	case RefOp:
		return encodePosition(w, o.Pos)
	default:
		return nil // every other variant has an empty payload
	}
}

func decodeOperation(r io.Reader) (Operation, error) {
	typeID, err := readInt32(r)
	if err != nil {
		return nil, err
	}
	switch Kind(typeID) {
	case KindAdd:
		return AddOp{}, nil
	case KindSub:
		return SubOp{}, nil
	case KindMul:
		return MulOp{}, nil
	case KindDiv:
		return DivOp{}, nil
	case KindPow:
		return PowOp{}, nil
	case KindNeg:
		return NegOp{}, nil
	case KindEq:
		return EqOp{}, nil
	case KindNe:
		return NeOp{}, nil
	case KindLt:
		return LtOp{}, nil
	case KindLe:
		return LeOp{}, nil
	case KindGt:
		return GtOp{}, nil
	case KindGe:
		return GeOp{}, nil
	case KindRef:
		pos, err := decodePosition(r)
		if err != nil {
			return nil, err
		}
		return RefOp{Pos: pos}, nil
	case KindNum:
		v, err := readFloat64(r)
		if err != nil {
			return nil, err
		}
		return NumOp{Value: v}, nil
	case KindStr:
		s, err := readString(r)
		if err != nil {
			return nil, err
		}
		return StrOp{Value: s}, nil
	case KindRange:
		return RangeOp{}, nil
	case KindFunc:
		return FuncOp{}, nil
	default:
		return nil, ioFailure("unknown operation type tag %d", typeID)
	}
}

func encodeCell(w io.Writer, c *Cell) error {
	if err := writeUint64(w, uint64(len(c.program))); err != nil {
		return err
	}
	for _, op := range c.program {
		if err := encodeOperation(w, op); err != nil {
			return err
		}
	}
	// IsCalculated is always 0 in well-formed files: this engine never
	// caches a computed value inside a Cell.
	return writeUint8(w, 0)
}

func decodeCell(r io.Reader) (*Cell, error) {
	stackSize, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	if stackSize > uint64(maxProgramLength) {
		return nil, ioFailure("program length %d exceeds sanity bound", stackSize)
	}
	program := make([]Operation, 0, stackSize)
	for i := uint64(0); i < stackSize; i++ {
		op, err := decodeOperation(r)
		if err != nil {
			return nil, err
		}
		program = append(program, op)
	}
	if _, err := readUint8(r); err != nil { // IsCalculated, ignored
		return nil, err
	}
	return newCell(program), nil
}

// encodeSheet writes the entry of cells for each position, in the order of
// positions. SaveErr passes them sorted lexicographically (§3), so that two
// saves of an unmodified sheet produce byte-identical output.
func encodeSheet(w io.Writer, positions []Position, cells map[Position]*Cell) error {
	if err := writeUint64(w, uint64(len(positions))); err != nil {
		return err
	}
	for _, pos := range positions {
		if err := encodePosition(w, pos); err != nil {
			return err
		}
		if err := encodeCell(w, cells[pos]); err != nil {
			return err
		}
	}
	return nil
}

// decodeSheet reads a full SheetFile into a fresh map. It never mutates any
// pre-existing sheet state — the caller decides whether and when to swap it
// in, which is what makes Sheet.Load's stage-then-commit behavior possible.
func decodeSheet(r io.Reader) (map[Position]*Cell, error) {
	numCells, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	if numCells > uint64(maxProgramLength) {
		return nil, ioFailure("cell count %d exceeds sanity bound", numCells)
	}
	cells := make(map[Position]*Cell, numCells)
	for i := uint64(0); i < numCells; i++ {
		pos, err := decodePosition(r)
		if err != nil {
			return nil, err
		}
		cell, err := decodeCell(r)
		if err != nil {
			return nil, err
		}
		cells[pos] = cell
	}
	return cells, nil
}
