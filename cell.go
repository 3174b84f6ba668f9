package engine

// Cell owns one postfix expression program and the re-entry guard used to
// detect cycles while that program is being evaluated. A Cell with a nil or
// empty program is "empty" and is never asked to evaluate — Sheet.GetValue
// returns Undefined for it directly.
type Cell struct {
	program      []Operation
	inEvaluation bool
}

func newCell(program []Operation) *Cell {
	return &Cell{program: program}
}

// evaluate walks c's program from its root. If c is already mid-evaluation
// (a back-edge was reached through a cycle of Ref nodes), it returns
// Undefined immediately without touching the guard — cycle detection is
// local to the cell whose re-entry was observed, not global. The guard is
// released on every exit path via defer, matching the teacher's habit of
// scoping mutable state with defer rather than hand-written cleanup on each
// return statement.
func (c *Cell) evaluate(s *Sheet) Value {
	if c == nil || len(c.program) == 0 {
		return Undefined
	}
	if c.inEvaluation {
		return Undefined
	}
	c.inEvaluation = true
	defer func() { c.inEvaluation = false }()

	root, ok := buildTree(c.program)
	if !ok {
		return Undefined
	}
	return root.eval(s)
}

// treeNode is an evaluation tree over a Cell's flat postfix program,
// rebuilt from the program on every call to evaluate. Building the tree is what lets Arity()==0 leaves like Func
// and Range leave their pushed-but-unconsumed operand nodes stranded below
// them in the program, exactly as the callback contract in §4.4 implies.
type treeNode struct {
	op       Operation
	children []*treeNode
}

// buildTree interprets program as reverse-Polish notation: each node pops
// exactly op.Arity() nodes off the tail of what has been built so far. The
// final element left on the stack is the root: the last node in the
// program. ok is false only for a malformed program (an operator with too
// few preceding operands, or an empty program) — callers treat that the
// same as Undefined. The formula parser never emits such a program, but
// Load accepts any sequence of valid tags, so one can arrive from a file.
func buildTree(program []Operation) (*treeNode, bool) {
	stack := make([]*treeNode, 0, len(program))
	for _, op := range program {
		arity := op.Arity()
		if arity > len(stack) {
			return nil, false
		}
		children := make([]*treeNode, arity)
		for i := arity - 1; i >= 0; i-- {
			children[i] = stack[len(stack)-1]
			stack = stack[:len(stack)-1]
		}
		stack = append(stack, &treeNode{op: op, children: children})
	}
	if len(stack) == 0 {
		return nil, false
	}
	return stack[len(stack)-1], true
}

// eval dispatches each node either as a leaf (Ref, which reads the sheet;
// the literal Num/Str; the always-Undefined Range/Func) or as a pure combinator over
// its already-evaluated children. Every Operation implements exactly one of
// the two, so the type assertions below are exhaustive by construction.
func (n *treeNode) eval(s *Sheet) Value {
	if leaf, ok := n.op.(leafOperation); ok {
		return leaf.evalLeaf(s)
	}
	pure, ok := n.op.(pureOperation)
	if !ok {
		return Undefined
	}
	args := make([]Value, len(n.children))
	for i, child := range n.children {
		args[i] = child.eval(s)
	}
	return pure.apply(args)
}

// cloneProgram deep-copies every node via its own Clone method, satisfying
// copyRect's deep-clone requirement without structural sharing.
func cloneProgram(program []Operation) []Operation {
	if program == nil {
		return nil
	}
	out := make([]Operation, len(program))
	for i, op := range program {
		out[i] = op.Clone()
	}
	return out
}

// translateRefs rewrites every RefOp in program in place, adding dRow/dCol
// to the relative components of its Position and leaving absolute
// components untouched, per §4.6's copyRect rule.
func translateRefs(program []Operation, dRow, dCol int32) {
	for i, op := range program {
		ref, ok := op.(RefOp)
		if !ok {
			continue
		}
		pos := ref.Pos
		if !pos.AbsRow {
			pos.Row += dRow
		}
		if !pos.AbsCol {
			pos.Col += dCol
		}
		program[i] = RefOp{Pos: pos}
	}
}
