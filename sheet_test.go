package engine

import "testing"

func pos(t *testing.T, s string) Position {
	t.Helper()
	p, err := ParsePosition(s)
	if err != nil {
		t.Fatalf("ParsePosition(%q): %v", s, err)
	}
	return p
}

func assertValue(t *testing.T, s *Sheet, addr string, want Value) {
	t.Helper()
	got := s.GetValue(pos(t, addr))
	if !got.ApproxEqual(want) {
		t.Errorf("%s = %+v, want %+v", addr, got, want)
	}
}

func TestSetCellNumberTextFormula(t *testing.T) {
	s := NewSheet()
	if !s.SetCell(pos(t, "A0"), "42") {
		t.Fatal("SetCell(42) should succeed")
	}
	assertValue(t, s, "A0", Number(42))

	if !s.SetCell(pos(t, "B0"), "hello") {
		t.Fatal("SetCell(hello) should succeed")
	}
	assertValue(t, s, "B0", Text("hello"))

	if !s.SetCell(pos(t, "C0"), "=A0+1") {
		t.Fatal("SetCell(formula) should succeed")
	}
	assertValue(t, s, "C0", Number(43))
}

func TestSetCellTrailingGarbageIsText(t *testing.T) {
	s := NewSheet()
	s.SetCell(pos(t, "A0"), "12abc")
	assertValue(t, s, "A0", Text("12abc"))
}

func TestSetCellEmptyStringIsEmptyText(t *testing.T) {
	s := NewSheet()
	s.SetCell(pos(t, "A0"), "")
	assertValue(t, s, "A0", Text(""))
}

func TestSetCellRejectsInvalidFormula(t *testing.T) {
	s := NewSheet()
	err := s.SetCellErr(pos(t, "A0"), "=1+")
	if err == nil {
		t.Fatal("malformed formula should be rejected")
	}
	fe, ok := err.(*FormatError)
	if !ok || fe.Code != ErrInvalidFormula {
		t.Errorf("expected InvalidFormula, got %v", err)
	}
}

func TestGetValueUnknownPositionIsUndefined(t *testing.T) {
	s := NewSheet()
	got := s.GetValue(pos(t, "Z99"))
	if !got.IsUndefined() {
		t.Errorf("unwritten cell should be Undefined, got %+v", got)
	}
}

func TestReferenceToMissingCellIsUndefined(t *testing.T) {
	s := NewSheet()
	s.SetCell(pos(t, "A0"), "=B0+1")
	assertValue(t, s, "A0", Undefined)
}

func TestCopyCellTranslatesRelativeReference(t *testing.T) {
	s := NewSheet()
	s.SetCell(pos(t, "A0"), "10")
	s.SetCell(pos(t, "A1"), "20")
	s.SetCell(pos(t, "B0"), "=A0+1")

	s.CopyCell(pos(t, "B1"), pos(t, "B0"))
	assertValue(t, s, "B1", Number(21))
}

func TestCopyRectAbsoluteReferenceScenario(t *testing.T) {
	s := NewSheet()
	dVals := []string{"10", "20", "30", "40", "50"}
	eVals := []string{"60", "70", "80", "90", "100"}
	for i := 0; i < 5; i++ {
		s.SetCell(Position{Row: int32(i), Col: 3}, dVals[i]) // D column
		s.SetCell(Position{Row: int32(i), Col: 4}, eVals[i]) // E column
	}

	s.SetCell(pos(t, "F10"), "=D0+5")
	s.SetCell(pos(t, "F11"), "=$D0+5")
	s.SetCell(pos(t, "F12"), "=D$0+5")
	s.SetCell(pos(t, "F13"), "=$D$0+5")

	s.CopyRect(pos(t, "G11"), pos(t, "F10"), 1, 4)

	assertValue(t, s, "G11", Number(75))
	assertValue(t, s, "G12", Number(25))
	assertValue(t, s, "G13", Number(65))
	assertValue(t, s, "G14", Number(15))

	// the source rectangle must be left untouched by the copy.
	assertValue(t, s, "F10", Number(15))
	assertValue(t, s, "F11", Number(15))
	assertValue(t, s, "F12", Number(15))
	assertValue(t, s, "F13", Number(15))
}

func TestCopyRectOverlappingSourceAndDestination(t *testing.T) {
	s := NewSheet()
	s.SetCell(pos(t, "A0"), "1")
	s.SetCell(pos(t, "A1"), "=A0+1")
	s.SetCell(pos(t, "A2"), "=A1+1")

	// shift the three-row column down by one row, overlapping itself.
	s.CopyRect(pos(t, "A1"), pos(t, "A0"), 1, 3)

	// the rectangle read must be staged from the pre-copy snapshot even
	// though source and destination overlap; only translated references
	// resolve against the post-copy sheet when evaluated.
	assertValue(t, s, "A1", Number(1))
	assertValue(t, s, "A2", Number(2))
	assertValue(t, s, "A3", Number(3))
}

func TestCopyRectEmptySourceClearsDestination(t *testing.T) {
	s := NewSheet()
	s.SetCell(pos(t, "B0"), "99")
	s.CopyCell(pos(t, "B0"), pos(t, "A0")) // A0 was never written
	got := s.GetValue(pos(t, "B0"))
	if !got.IsUndefined() {
		t.Errorf("copying an empty cell over B0 should clear it, got %+v", got)
	}
}

func TestCopyRectNonPositiveDimensionsAreNoop(t *testing.T) {
	s := NewSheet()
	s.SetCell(pos(t, "A0"), "5")
	s.CopyRect(pos(t, "B0"), pos(t, "A0"), 0, 1)
	s.CopyRect(pos(t, "C0"), pos(t, "A0"), 1, 0)
	s.CopyRect(pos(t, "D0"), pos(t, "A0"), -1, 1)

	for _, addr := range []string{"B0", "C0", "D0"} {
		if got := s.GetValue(pos(t, addr)); !got.IsUndefined() {
			t.Errorf("%s should remain untouched, got %+v", addr, got)
		}
	}
}

func TestCapabilitiesAdvertiseCyclicDepsAndFileIO(t *testing.T) {
	s := NewSheet()
	caps := s.Capabilities()
	if caps&CapCyclicDeps == 0 {
		t.Error("expected CapCyclicDeps to be set")
	}
	if caps&CapFileIO == 0 {
		t.Error("expected CapFileIO to be set")
	}
}

type recordingLogger struct {
	lines []string
}

func (l *recordingLogger) Printf(format string, args ...any) {
	l.lines = append(l.lines, format)
}

func TestWithLoggerReceivesRejections(t *testing.T) {
	logger := &recordingLogger{}
	s := NewSheet(WithLogger(logger))
	s.SetCell(pos(t, "A0"), "=1+")
	if len(logger.lines) == 0 {
		t.Error("logger should have received a rejection line")
	}
}

func TestWithLoggerNilLeavesDefault(t *testing.T) {
	s := NewSheet(WithLogger(nil))
	if s.logger == nil {
		t.Error("passing a nil logger should not clear the default")
	}
}
