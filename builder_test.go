package engine

import "testing"

func TestExpressionBuilderProgram(t *testing.T) {
	b := NewExpressionBuilder()
	b.ValNumber(1)
	b.ValNumber(2)
	b.OpAdd()
	if err := b.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	program := b.Program()
	if len(program) != 3 {
		t.Fatalf("len(program) = %d, want 3", len(program))
	}
	if program[2].Kind() != KindAdd {
		t.Errorf("last node kind = %v, want KindAdd", program[2].Kind())
	}
}

func TestExpressionBuilderValReferenceInvalid(t *testing.T) {
	b := NewExpressionBuilder()
	b.ValReference("!!!")
	if err := b.Err(); err == nil {
		t.Fatal("invalid reference text should record an error")
	}
	fe, ok := b.Err().(*FormatError)
	if !ok || fe.Code != ErrInvalidFormula {
		t.Errorf("expected InvalidFormula, got %v", b.Err())
	}
}

func TestExpressionBuilderStopsPushingAfterError(t *testing.T) {
	b := NewExpressionBuilder()
	b.ValReference("!!!")
	b.ValNumber(5) // must be a no-op once b.err is set
	if len(b.Program()) != 0 {
		t.Errorf("builder should stop accumulating once an error is recorded, got %v", b.Program())
	}
}

func TestExpressionBuilderFuncCallLeavesOperandsStranded(t *testing.T) {
	b := NewExpressionBuilder()
	b.ValNumber(1)
	b.ValNumber(2)
	b.FuncCall("SUM", 2)
	program := b.Program()
	if len(program) != 3 {
		t.Fatalf("len(program) = %d, want 3", len(program))
	}
	if program[2].Kind() != KindFunc {
		t.Errorf("last node kind = %v, want KindFunc", program[2].Kind())
	}
}

func TestExpressionBuilderValRange(t *testing.T) {
	b := NewExpressionBuilder()
	b.ValRange("A1:B2")
	program := b.Program()
	if len(program) != 1 || program[0].Kind() != KindRange {
		t.Errorf("ValRange should push a single RangeOp, got %v", program)
	}
}
