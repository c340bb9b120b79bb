package fndiff

import (
	"errors"
	"testing"
)

// testInst scores 4 against the same mnemonic and 0 against anything else.
type testInst struct {
	op string
}

func (t testInst) Score(other Inst) int {
	o, ok := other.(testInst)
	if !ok || t.op != o.op {
		return 0
	}
	return 4
}

func (t testInst) Render() string {
	return t.op
}

// block builds a basic block; term == "" means no terminator.
func block(name, term string, ops ...string) *Block {
	b := &Block{Name: name}
	for _, op := range ops {
		b.Body = append(b.Body, testInst{op: op})
	}
	if term == "" {
		b.Term = noInst{equiv: 4}
	} else {
		b.Term = testInst{op: term}
	}
	return b
}

func makeFunc(name string, blocks ...*Block) *Function {
	return &Function{Name: name, Blocks: blocks}
}

func makeProg(funcs ...*Function) *Program {
	p := newProgram(1, 4)
	for _, f := range funcs {
		p.add(f.Name, f)
	}
	return p.seal()
}

func runDiff(t *testing.T, left, right *Program, sel Selector) (bool, *RowSink) {
	t.Helper()
	sink := &RowSink{}
	hasDiff, err := Compare(left, right, sel, sink)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	return hasDiff, sink
}

func TestSelfDiffIsClean(t *testing.T) {
	make2 := func() *Program {
		return makeProg(makeFunc("main",
			block("0", "ret", "push", "mov", "add"),
			block("1", "jmp", "sub"),
		))
	}
	hasDiff, sink := runDiff(t, make2(), make2(), Selector{})
	if hasDiff {
		t.Error("self-diff reported a difference")
	}
	if len(sink.Diffs) != 1 {
		t.Fatalf("expected 1 function diff, got %d", len(sink.Diffs))
	}
	for _, row := range sink.Diffs[0].Rows {
		if row.Kind == HeaderRow {
			continue
		}
		if row.Match.Direction != Align || !row.Match.Exact {
			t.Errorf("self-diff emitted non-exact row %q / %q", row.Left, row.Right)
		}
	}
}

// A right-side extra instruction aligns as a single left gap while the
// terminator still matches exactly.
func TestSingleGapAlignment(t *testing.T) {
	left := makeProg(makeFunc("main", block("0", "ret")))
	right := makeProg(makeFunc("main", block("0", "ret", "nop")))
	hasDiff, sink := runDiff(t, left, right, Selector{})
	if !hasDiff {
		t.Error("expected a difference")
	}
	rows := sink.Diffs[0].Rows
	want := []Row{
		{Kind: HeaderRow, Left: "0", Right: "0"},
		{Kind: InstructionRow, Left: "", Right: "nop", Match: Match{Direction: GapLeft}},
		{Kind: InstructionRow, Left: "ret", Right: "ret", Match: Match{Direction: Align, Exact: true}},
	}
	if len(rows) != len(want) {
		t.Fatalf("expected %d rows, got %d: %+v", len(want), len(rows), rows)
	}
	for i, row := range rows {
		if row != want[i] {
			t.Errorf("row %d: got %+v, want %+v", i, row, want[i])
		}
	}
}

// A left block whose body and terminator both score zero against every
// right block is orphaned: all-right-gap body rows and an inexact
// terminator row.
func TestOrphanBlock(t *testing.T) {
	left := makeProg(makeFunc("main",
		block("0", "ret", "add"),
		block("1", "", "xor"),
	))
	right := makeProg(makeFunc("main", block("0", "ret", "add")))
	hasDiff, sink := runDiff(t, left, right, Selector{})
	if !hasDiff {
		t.Error("expected a difference")
	}
	rows := sink.Diffs[0].Rows
	// Block 0 pairs exactly: header + add + ret.
	for _, row := range rows[:3] {
		if row.Kind == InstructionRow && (row.Match.Direction != Align || !row.Match.Exact) {
			t.Errorf("paired block emitted non-exact row %+v", row)
		}
	}
	orphan := rows[3:]
	want := []Row{
		{Kind: HeaderRow, Left: "1", Right: ""},
		{Kind: InstructionRow, Left: "xor", Right: "", Match: Match{Direction: GapRight}},
		{Kind: InstructionRow, Left: "<no instruction>", Right: "", Match: Match{Direction: Align}},
	}
	if len(orphan) != len(want) {
		t.Fatalf("expected %d orphan rows, got %d: %+v", len(want), len(orphan), orphan)
	}
	for i, row := range orphan {
		if row != want[i] {
			t.Errorf("orphan row %d: got %+v, want %+v", i, row, want[i])
		}
	}
}

// A positive terminator score alone is enough to pair blocks with disjoint
// bodies.
func TestTerminatorScorePairs(t *testing.T) {
	left := makeProg(makeFunc("main", block("0", "ret", "add")))
	right := makeProg(makeFunc("main", block("0", "ret", "xor")))
	hasDiff, sink := runDiff(t, left, right, Selector{})
	if !hasDiff {
		t.Error("expected a difference")
	}
	rows := sink.Diffs[0].Rows
	if rows[0].Kind != HeaderRow || rows[0].Right != "0" {
		t.Fatalf("expected the blocks to pair, got rows %+v", rows)
	}
	if rows[1].Match.Direction != Align || rows[1].Match.Exact {
		t.Errorf("disjoint bodies should align inexactly, got %+v", rows[1])
	}
}

// Right blocks never chosen by any left block trail as all-left-gap rows.
func TestUnusedRightTail(t *testing.T) {
	left := makeProg(makeFunc("main", block("0", "ret", "add")))
	right := makeProg(makeFunc("main",
		block("0", "ret", "add"),
		block("1", "jmp", "sub"),
	))
	hasDiff, sink := runDiff(t, left, right, Selector{})
	if !hasDiff {
		t.Error("expected a difference")
	}
	rows := sink.Diffs[0].Rows
	tail := rows[len(rows)-3:]
	want := []Row{
		{Kind: HeaderRow, Left: "", Right: "1"},
		{Kind: InstructionRow, Left: "", Right: "sub", Match: Match{Direction: GapLeft}},
		{Kind: InstructionRow, Left: "", Right: "jmp", Match: Match{Direction: GapLeft}},
	}
	for i, row := range tail {
		if row != want[i] {
			t.Errorf("tail row %d: got %+v, want %+v", i, row, want[i])
		}
	}
}

// A right block stays in consideration after being consumed, so it can pair
// with several left blocks.
func TestRightBlockReuse(t *testing.T) {
	left := makeProg(makeFunc("main",
		block("0", "ret", "add"),
		block("1", "ret", "add"),
	))
	right := makeProg(makeFunc("main", block("0", "ret", "add")))
	_, sink := runDiff(t, left, right, Selector{})
	rows := sink.Diffs[0].Rows
	headers := 0
	for _, row := range rows {
		if row.Kind == HeaderRow {
			headers++
			if row.Right != "0" {
				t.Errorf("expected both left blocks to pair with right block 0, got %+v", row)
			}
		}
	}
	if headers != 2 {
		t.Errorf("expected 2 block headers, got %d", headers)
	}
}

func TestEmptyBodyEquivalentTerminators(t *testing.T) {
	left := makeProg(makeFunc("main", block("0", "ret")))
	right := makeProg(makeFunc("main", block("0", "ret")))
	hasDiff, sink := runDiff(t, left, right, Selector{})
	if hasDiff {
		t.Error("identical single-terminator blocks should not differ")
	}
	rows := sink.Diffs[0].Rows
	if len(rows) != 2 {
		t.Fatalf("expected header + terminator row, got %+v", rows)
	}
	if rows[1].Match.Direction != Align || !rows[1].Match.Exact {
		t.Errorf("terminator row should be an exact alignment, got %+v", rows[1])
	}
}

func TestAbsentTerminators(t *testing.T) {
	left := makeProg(makeFunc("main", block("0", "", "add")))
	right := makeProg(makeFunc("main", block("0", "", "add")))
	hasDiff, _ := runDiff(t, left, right, Selector{})
	if hasDiff {
		t.Error("matching blocks with absent terminators should not differ")
	}
	if got := (noInst{equiv: 4}).Score(testInst{op: "ret"}); got != 0 {
		t.Errorf("absent terminator scored %d against a present instruction", got)
	}
	if got := (noInst{equiv: 4}).Score(noInst{equiv: 4}); got != 4 {
		t.Errorf("absent terminator scored %d against another absent terminator", got)
	}
}

func TestSelectorSameName(t *testing.T) {
	left := makeProg(
		makeFunc("alpha", block("0", "ret")),
		makeFunc("beta", block("0", "ret", "add")),
	)
	right := makeProg(
		makeFunc("alpha", block("0", "ret")),
		makeFunc("beta", block("0", "ret", "add")),
	)
	_, sink := runDiff(t, left, right, Selector{Left: "beta"})
	if len(sink.Diffs) != 1 || sink.Diffs[0].Left != "beta" || sink.Diffs[0].Right != "beta" {
		t.Errorf("expected a single beta/beta diff, got %+v", sink.Diffs)
	}
}

func TestSelectorDifferentNames(t *testing.T) {
	left := makeProg(makeFunc("foo()", block("0", "ret", "add")))
	right := makeProg(makeFunc("bar()", block("0", "ret", "add")))
	hasDiff, sink := runDiff(t, left, right, Selector{Left: "foo()", Right: "bar()"})
	if hasDiff {
		t.Error("identical bodies under different names should not differ")
	}
	if len(sink.Diffs) != 1 {
		t.Fatalf("expected 1 diff, got %d", len(sink.Diffs))
	}
	if got := sink.Diffs[0].Title(); got != "foo() vs bar()" {
		t.Errorf("title = %q, want %q", got, "foo() vs bar()")
	}
}

func TestSelectorIntersection(t *testing.T) {
	left := makeProg(
		makeFunc("only-left", block("0", "ret")),
		makeFunc("shared", block("0", "ret")),
	)
	right := makeProg(
		makeFunc("only-right", block("0", "ret")),
		makeFunc("shared", block("0", "ret")),
	)
	_, sink := runDiff(t, left, right, Selector{})
	if len(sink.Diffs) != 1 || sink.Diffs[0].Left != "shared" {
		t.Errorf("expected only the shared function to be diffed, got %+v", sink.Diffs)
	}
}

func TestSelectorNoMatch(t *testing.T) {
	left := makeProg(makeFunc("alpha", block("0", "ret")))
	right := makeProg(makeFunc("beta", block("0", "ret")))
	cases := []struct {
		sel  Selector
		side Side
	}{
		{Selector{Left: "beta"}, SideLeft},
		{Selector{Left: "alpha"}, SideRight},
		{Selector{Left: "gamma"}, SideBoth},
		{Selector{}, SideBoth},
	}
	for _, c := range cases {
		_, err := Compare(left, right, c.sel, &RowSink{})
		var noMatch *NoMatchError
		if !errors.As(err, &noMatch) {
			t.Errorf("selector %+v: expected NoMatchError, got %v", c.sel, err)
			continue
		}
		if noMatch.Side != c.side {
			t.Errorf("selector %+v: side = %v, want %v", c.sel, noMatch.Side, c.side)
		}
	}
}

func TestSelectorRightNameOnly(t *testing.T) {
	p := makeProg(makeFunc("alpha", block("0", "ret")))
	_, err := Compare(p, p, Selector{Right: "alpha"}, &RowSink{})
	if !errors.Is(err, ErrBadSelector) {
		t.Errorf("expected ErrBadSelector, got %v", err)
	}
}

// The alignment path consumes exactly the two bodies: non-GapLeft arrows
// equal the left length and non-GapRight arrows equal the right length.
func TestAlignmentPathCounts(t *testing.T) {
	lb := block("0", "ret", "push", "mov", "add", "pop")
	rb := block("0", "ret", "push", "add", "xor", "pop", "nop")
	_, grid := alignBlocks(lb, rb, 1, 4)
	path := tracePath(grid, len(lb.Body), len(rb.Body))
	consumesLeft, consumesRight := 0, 0
	for _, step := range path {
		if step.Direction != GapLeft {
			consumesLeft++
		}
		if step.Direction != GapRight {
			consumesRight++
		}
	}
	if consumesLeft != len(lb.Body) {
		t.Errorf("path consumes %d left instructions, want %d", consumesLeft, len(lb.Body))
	}
	if consumesRight != len(rb.Body) {
		t.Errorf("path consumes %d right instructions, want %d", consumesRight, len(rb.Body))
	}
}

// Gap-only prefixes accumulate -GAP per instruction.
func TestGapPenaltyInitialization(t *testing.T) {
	lb := block("0", "ret", "a", "b", "c")
	rb := block("0", "ret", "x", "y")
	gap := 2
	_, grid := alignBlocks(lb, rb, gap, 4)
	for i := 1; i <= len(lb.Body); i++ {
		if grid[i][0].score != -i*gap {
			t.Errorf("grid[%d][0] = %d, want %d", i, grid[i][0].score, -i*gap)
		}
		if grid[i][0].m.Direction != GapRight {
			t.Errorf("grid[%d][0] arrow = %v, want GapRight", i, grid[i][0].m.Direction)
		}
	}
	for j := 1; j <= len(rb.Body); j++ {
		if grid[0][j].score != -j*gap {
			t.Errorf("grid[0][%d] = %d, want %d", j, grid[0][j].score, -j*gap)
		}
		if grid[0][j].m.Direction != GapLeft {
			t.Errorf("grid[0][%d] arrow = %v, want GapLeft", j, grid[0][j].m.Direction)
		}
	}
}

// tieInst scores by an explicit table, for engineering exact ties between
// the three alignment candidates of a cell.
type tieInst struct {
	name   string
	scores map[string]int
}

func (t tieInst) Score(other Inst) int {
	o, ok := other.(tieInst)
	if !ok {
		return 0
	}
	return t.scores[o.name]
}

func (t tieInst) Render() string {
	return t.name
}

func tieBlock(insts ...tieInst) *Block {
	b := &Block{Name: "0", Term: noInst{equiv: 4}}
	for _, inst := range insts {
		b.Body = append(b.Body, inst)
	}
	return b
}

// Tied candidates resolve to the last one considered: GapRight over GapLeft
// over the diagonal.
func TestAlignmentTieBreaking(t *testing.T) {
	t.Run("three-way tie picks GapRight", func(t *testing.T) {
		// With gap 1, the final cell's diagonal (0+2), left-gap (3-1) and
		// right-gap (3-1) candidates all come to 2.
		a := tieInst{name: "a", scores: map[string]int{"c": 0, "d": 4}}
		b := tieInst{name: "b", scores: map[string]int{"c": 4, "d": 2}}
		lb := tieBlock(a, b)
		rb := tieBlock(tieInst{name: "c"}, tieInst{name: "d"})
		score, grid := alignBlocks(lb, rb, 1, 4)
		if score != 2 {
			t.Fatalf("final score = %d, want 2 (the tie is not set up)", score)
		}
		if got := grid[2][2].m.Direction; got != GapRight {
			t.Errorf("three-way tie resolved to %v, want GapRight", got)
		}
	})
	t.Run("diagonal/GapLeft tie picks GapLeft", func(t *testing.T) {
		// With gap 2 and all scores 0, the final cell's diagonal (-2+0) ties
		// the left-gap (0-2) while the right-gap trails at -6.
		a := tieInst{name: "a", scores: map[string]int{}}
		lb := tieBlock(a)
		rb := tieBlock(tieInst{name: "c"}, tieInst{name: "d"})
		score, grid := alignBlocks(lb, rb, 2, 4)
		if score != -2 {
			t.Fatalf("final score = %d, want -2 (the tie is not set up)", score)
		}
		if got := grid[1][2].m.Direction; got != GapLeft {
			t.Errorf("diagonal/GapLeft tie resolved to %v, want GapLeft", got)
		}
	})
	t.Run("diagonal/GapRight tie picks GapRight", func(t *testing.T) {
		a := tieInst{name: "a", scores: map[string]int{}}
		b := tieInst{name: "b", scores: map[string]int{}}
		lb := tieBlock(a, b)
		rb := tieBlock(tieInst{name: "c"})
		score, grid := alignBlocks(lb, rb, 2, 4)
		if score != -2 {
			t.Fatalf("final score = %d, want -2 (the tie is not set up)", score)
		}
		if got := grid[2][1].m.Direction; got != GapRight {
			t.Errorf("diagonal/GapRight tie resolved to %v, want GapRight", got)
		}
	})
}

// Identical bodies score 4 per instruction with no gaps.
func TestAlignmentScore(t *testing.T) {
	lb := block("0", "ret", "push", "mov", "pop")
	rb := block("0", "ret", "push", "mov", "pop")
	score, _ := alignBlocks(lb, rb, 1, 4)
	if score != 12 {
		t.Errorf("identical 3-instruction bodies scored %d, want 12", score)
	}
}
