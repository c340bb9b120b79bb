package fndiff

// Direction tags where a diff row's instructions come from.
type Direction int

const (
	// Align pairs an instruction on each side.
	Align Direction = iota
	// GapLeft has an instruction on the right side only.
	GapLeft
	// GapRight has an instruction on the left side only.
	GapRight
)

// Match tags one diff row. Exact is meaningful for Align rows and reports
// whether the pair's score reached the equivalence threshold.
type Match struct {
	Direction Direction
	Exact     bool
}

// Selector picks the function pair(s) to diff. The zero value selects every
// function name the two sides have in common. With only Left set, the same
// name is looked up on both sides. With both set, Left is looked up in the
// left program and Right in the right one (useful when mangled names embed
// type information that differs between the two builds).
type Selector struct {
	Left  string
	Right string
}

type functionPair struct {
	left  *Function
	right *Function
}

func selectPairs(left, right *Program, sel Selector) ([]functionPair, error) {
	if sel.Left == "" && sel.Right != "" {
		return nil, ErrBadSelector
	}
	if sel.Left == "" {
		var pairs []functionPair
		for _, lf := range left.Functions() {
			if rf, ok := right.Get(lf.Name); ok {
				pairs = append(pairs, functionPair{lf, rf})
			}
		}
		if len(pairs) == 0 {
			return nil, &NoMatchError{Side: SideBoth}
		}
		return pairs, nil
	}
	rightName := sel.Right
	if rightName == "" {
		rightName = sel.Left
	}
	lf, lok := left.Get(sel.Left)
	rf, rok := right.Get(rightName)
	switch {
	case lok && rok:
		return []functionPair{{lf, rf}}, nil
	case rok:
		return nil, &NoMatchError{Side: SideLeft}
	case lok:
		return nil, &NoMatchError{Side: SideRight}
	default:
		return nil, &NoMatchError{Side: SideBoth}
	}
}

// Compare diffs the selected function pairs of two programs, streaming rows
// into sink. It reports whether any difference was found: a gap row, an
// inexact alignment, an orphaned left block or an unused right block.
func Compare(left, right *Program, sel Selector, sink ResultSink) (bool, error) {
	pairs, err := selectPairs(left, right, sel)
	if err != nil {
		return false, err
	}
	hasDiff := false
	for _, pair := range pairs {
		if diffFunctions(pair.left, pair.right, left.gap, left.equiv, sink) {
			hasDiff = true
		}
		sink.EndFunction(pair.left.Name, pair.right.Name)
	}
	return hasDiff, nil
}

// gridCell is one Needleman-Wunsch table entry: the running score and the
// arrow that produced it. The origin cell has no arrow (ok is false).
type gridCell struct {
	score int
	m     Match
	ok    bool
}

// alignBlocks fills the alignment table for two block bodies and returns the
// body score together with the table, for traceback.
func alignBlocks(lb, rb *Block, gap, equiv int) (int, [][]gridCell) {
	m, n := len(lb.Body), len(rb.Body)
	grid := make([][]gridCell, m+1)
	for i := range grid {
		grid[i] = make([]gridCell, n+1)
	}
	for i := 1; i <= m; i++ {
		grid[i][0] = gridCell{score: -i * gap, m: Match{Direction: GapRight}, ok: true}
	}
	for j := 1; j <= n; j++ {
		grid[0][j] = gridCell{score: -j * gap, m: Match{Direction: GapLeft}, ok: true}
	}
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			s := lb.Body[i].Score(rb.Body[j])
			best := gridCell{
				score: grid[i][j].score + s,
				m:     Match{Direction: Align, Exact: s >= equiv},
				ok:    true,
			}
			if c := grid[i+1][j].score - gap; c >= best.score {
				best = gridCell{score: c, m: Match{Direction: GapLeft}, ok: true}
			}
			if c := grid[i][j+1].score - gap; c >= best.score {
				best = gridCell{score: c, m: Match{Direction: GapRight}, ok: true}
			}
			grid[i+1][j+1] = best
		}
	}
	return grid[m][n].score, grid
}

// tracePath walks the arrows back from (m, n) to the origin and returns the
// alignment path in forward order.
func tracePath(grid [][]gridCell, m, n int) []Match {
	var path []Match
	i, j := m, n
	for grid[i][j].ok {
		step := grid[i][j].m
		path = append(path, step)
		switch step.Direction {
		case GapLeft:
			j--
		case GapRight:
			i--
		default:
			i--
			j--
		}
	}
	for a, b := 0, len(path)-1; a < b; a, b = a+1, b-1 {
		path[a], path[b] = path[b], path[a]
	}
	return path
}

// diffFunctions pairs left blocks to right blocks greedily and emits the
// aligned rows for one function pair. Right blocks already consumed stay in
// consideration for later left blocks; usedRight only controls the tail of
// leftover right blocks.
func diffFunctions(lf, rf *Function, gap, equiv int, sink ResultSink) bool {
	hasDiff := false
	usedRight := make(map[int]bool)
	for _, lb := range lf.Blocks {
		bestID := -1
		bestScore := 0
		var bestBlock *Block
		var bestPath []Match
		bestTermExact := false
		for rid, rb := range rf.Blocks {
			score, grid := alignBlocks(lb, rb, gap, equiv)
			termScore := lb.Term.Score(rb.Term)
			score += termScore
			if score > 0 && (bestID < 0 || score > bestScore) {
				bestID = rid
				bestScore = score
				bestBlock = rb
				bestPath = tracePath(grid, len(lb.Body), len(rb.Body))
				bestTermExact = termScore >= equiv
			}
		}
		if bestBlock != nil {
			usedRight[bestID] = true
			sink.BlockRow(lb.Name, bestBlock.Name)
			i, j := 0, 0
			for _, step := range bestPath {
				switch step.Direction {
				case Align:
					sink.Row(lb.Body[i].Render(), bestBlock.Body[j].Render(), step)
					if !step.Exact {
						hasDiff = true
					}
					i++
					j++
				case GapLeft:
					sink.Row("", bestBlock.Body[j].Render(), step)
					hasDiff = true
					j++
				case GapRight:
					sink.Row(lb.Body[i].Render(), "", step)
					hasDiff = true
					i++
				}
			}
			sink.Row(lb.Term.Render(), bestBlock.Term.Render(), Match{Direction: Align, Exact: bestTermExact})
			if !bestTermExact {
				hasDiff = true
			}
		} else {
			// No right block scored positive: the left block is orphaned.
			hasDiff = true
			sink.BlockRow(lb.Name, "")
			for _, inst := range lb.Body {
				sink.Row(inst.Render(), "", Match{Direction: GapRight})
			}
			sink.Row(lb.Term.Render(), "", Match{Direction: Align})
		}
	}
	for rid, rb := range rf.Blocks {
		if usedRight[rid] {
			continue
		}
		hasDiff = true
		sink.BlockRow("", rb.Name)
		for _, inst := range rb.Body {
			sink.Row("", inst.Render(), Match{Direction: GapLeft})
		}
		sink.Row("", rb.Term.Render(), Match{Direction: GapLeft})
	}
	return hasDiff
}
