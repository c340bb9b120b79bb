package fndiff

import (
	"testing"

	"github.com/llir/llvm/ir"
)

const castsModule = `
define i64 @casts(i8 %x, i8 %y) {
entry:
	%a = zext i8 %x to i64
	%b = sext i8 %y to i64
	%c = zext i8 %x to i32
	%d = add i64 %a, %b
	%e = sub i64 %a, %b
	ret i64 %d
}
`

const branchesModule = `
define void @branches(i1 %c) {
entry:
	br i1 %c, label %then, label %done
then:
	br label %done
done:
	ret void
}
`

func loadIRString(t *testing.T, text string) *Program {
	t.Helper()
	p, err := loadIR(writeTemp(t, "test.ll", []byte(text)), true)
	if err != nil {
		t.Fatalf("loadIR failed: %v", err)
	}
	return p
}

func irBody(t *testing.T, p *Program, fn string) []Inst {
	t.Helper()
	f, ok := p.Get(fn)
	if !ok {
		t.Fatalf("%s not found", fn)
	}
	return f.Blocks[0].Body
}

func TestIRIngestion(t *testing.T) {
	p := loadIRString(t, castsModule)
	if p.Gap() != irGap || p.Equivalent() != irEquivalent {
		t.Errorf("Gap/Equivalent = %d/%d, want %d/%d", p.Gap(), p.Equivalent(), irGap, irEquivalent)
	}
	f, ok := p.Get("casts")
	if !ok {
		t.Fatal("casts not found")
	}
	if len(f.Blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(f.Blocks))
	}
	b := f.Blocks[0]
	if b.Name != "entry" {
		t.Errorf("block name = %q, want %q", b.Name, "entry")
	}
	if len(b.Body) != 5 {
		t.Errorf("body length = %d, want 5", len(b.Body))
	}
	if _, ok := b.Term.(irTerm); !ok {
		t.Errorf("terminator has type %T", b.Term)
	}
}

func TestIRInstructionScoring(t *testing.T) {
	body := irBody(t, loadIRString(t, castsModule), "casts")
	zext64, sext64, zext32, add, sub := body[0], body[1], body[2], body[3], body[4]

	cases := []struct {
		name  string
		left  Inst
		right Inst
		want  int
	}{
		{"same cast, same width", zext64, zext64, 4},
		{"same cast, different width", zext64, zext32, 3},
		{"related casts, same width", zext64, sext64, 3},
		{"related casts, different width", zext32, sext64, 2},
		{"same arithmetic", add, add, 4},
		{"arithmetic family", add, sub, 3},
		{"unrelated", add, zext64, 0},
	}
	for _, c := range cases {
		if got := c.left.Score(c.right); got != c.want {
			t.Errorf("%s: scored %d, want %d", c.name, got, c.want)
		}
	}
}

func TestIRTerminatorScoring(t *testing.T) {
	f, ok := loadIRString(t, branchesModule).Get("branches")
	if !ok {
		t.Fatal("branches not found")
	}
	condBr := f.Blocks[0].Term
	br := f.Blocks[1].Term
	ret := f.Blocks[2].Term
	if got := ret.Score(ret); got != irEquivalent {
		t.Errorf("ret vs ret scored %d, want %d", got, irEquivalent)
	}
	if got := br.Score(condBr); got != 0 {
		t.Errorf("br vs condbr scored %d, want 0", got)
	}
	if got := condBr.Score(testInst{op: "ret"}); got != 0 {
		t.Errorf("terminator vs foreign instruction scored %d, want 0", got)
	}
}

func TestIRSelfDiff(t *testing.T) {
	left := loadIRString(t, branchesModule)
	right := loadIRString(t, branchesModule)
	sink := &RowSink{}
	hasDiff, err := Compare(left, right, Selector{}, sink)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if hasDiff {
		t.Error("self-diff reported a difference")
	}
}

// Every scoring rule keeps score(x, x) at or above the threshold.
func TestIRScoreIdentity(t *testing.T) {
	body := irBody(t, loadIRString(t, castsModule), "casts")
	for i, inst := range body {
		w := inst.(irInst)
		if got := scoreIRInst(w.inst, w.inst); got < irEquivalent {
			t.Errorf("instruction %d (%T) scored %d against itself", i, w.inst, got)
		}
	}
}

func TestIRRenderIsLLVMSyntax(t *testing.T) {
	body := irBody(t, loadIRString(t, castsModule), "casts")
	if _, ok := body[3].(irInst); !ok {
		t.Fatalf("unexpected instruction type %T", body[3])
	}
	if got := body[3].Render(); got == "" {
		t.Error("instruction rendered as an empty string")
	}
	var _ ir.Instruction = body[3].(irInst).inst
}
