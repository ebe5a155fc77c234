// Package search ranks store entries against an incremental query.
package search

import (
	"sort"
	"strings"
	"unicode"

	"pass-tui/internal/storetree"

	"github.com/sahilm/fuzzy"
)

// Options weigh the three cost components of a match. Lower total cost ranks
// higher; ties fall back to lexical path order.
type Options struct {
	GapPenalty      int
	PositionPenalty int
	LengthPenalty   int
	// Limit caps the number of results (0 = no cap).
	Limit int
}

func DefaultOptions() Options {
	return Options{
		GapPenalty:      100,
		PositionPenalty: 10,
		LengthPenalty:   1,
	}
}

type Result struct {
	Entry *storetree.Node
	// Matched are byte offsets into Entry.Path() that matched the query.
	Matched []int
	Cost    int
}

func (r Result) Path() string { return r.Entry.Path() }

type Engine struct {
	Options Options
}

func New(opts Options) Engine { return Engine{Options: opts} }

// Search returns the entries of tree whose full path contains query as a
// case-insensitive subsequence. An empty query yields nothing.
func (e Engine) Search(tree *storetree.Tree, query string) []Result {
	query = strings.TrimSpace(query)
	if tree == nil || query == "" {
		return nil
	}
	entries := tree.Entries()
	paths := make([]string, len(entries))
	for i, n := range entries {
		paths[i] = n.Path()
	}

	// fuzzy narrows the candidates; align then picks, per candidate, the
	// cheapest placement, which fuzzy's greedy scan does not.
	w := weights{gap: e.Options.GapPenalty, position: e.Options.PositionPenalty}
	matches := fuzzy.Find(query, paths)
	out := make([]Result, 0, len(matches))
	for _, mt := range matches {
		a, ok := align(query, mt.Str, w)
		if !ok {
			continue
		}
		out = append(out, Result{
			Entry:   entries[mt.Index],
			Matched: a.offsets,
			Cost:    e.cost(a.runes, a.length),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Cost != out[j].Cost {
			return out[i].Cost < out[j].Cost
		}
		return out[i].Path() < out[j].Path()
	})
	if e.Options.Limit > 0 && len(out) > e.Options.Limit {
		out = out[:e.Options.Limit]
	}
	return out
}

func (e Engine) cost(matched []int, pathLen int) int {
	return Gaps(matched)*e.Options.GapPenalty +
		matched[0]*e.Options.PositionPenalty +
		pathLen*e.Options.LengthPenalty
}

// Gaps counts the breaks between consecutive matched offsets.
func Gaps(matched []int) int {
	gaps := 0
	for i := 1; i < len(matched); i++ {
		if matched[i]-matched[i-1] > 1 {
			gaps++
		}
	}
	return gaps
}

type alignment struct {
	runes   []int // rune positions of the matched characters
	offsets []int // the same positions as byte offsets
	length  int   // text length in runes
}

type cell struct {
	ok    bool
	gaps  int
	start int
	prev  int
}

// weights are the placement-dependent parts of the cost; the length term is
// the same for every placement in one text.
type weights struct {
	gap      int
	position int
}

func (w weights) score(c cell) int { return c.gaps*w.gap + c.start*w.position }

// better orders placements by weighted cost, then fewer gaps, then the
// earlier start.
func (w weights) better(a, b cell) bool {
	if !b.ok {
		return a.ok
	}
	if !a.ok {
		return false
	}
	if sa, sb := w.score(a), w.score(b); sa != sb {
		return sa < sb
	}
	if a.gaps != b.gaps {
		return a.gaps < b.gaps
	}
	return a.start < b.start
}

// align finds the case-insensitive subsequence placement of query in text
// with the lowest weighted cost.
func align(query, text string, w weights) (alignment, bool) {
	q := []rune(strings.ToLower(query))
	var tr []rune
	var offs []int
	for off, r := range text {
		tr = append(tr, unicode.ToLower(r))
		offs = append(offs, off)
	}
	m, n := len(q), len(tr)
	if m == 0 || m > n {
		return alignment{}, false
	}

	dp := make([][]cell, m)
	for i := range dp {
		dp[i] = make([]cell, n)
	}
	for j := 0; j < n; j++ {
		if tr[j] == q[0] {
			dp[0][j] = cell{ok: true, start: j, prev: -1}
		}
	}
	for i := 1; i < m; i++ {
		// best is the best placement of q[:i] ending at k <= j-2 (a gap before j).
		var best cell
		bestK := -1
		for j := 1; j < n; j++ {
			if j >= 2 && w.better(dp[i-1][j-2], best) {
				best = dp[i-1][j-2]
				bestK = j - 2
			}
			if tr[j] != q[i] {
				continue
			}
			var c cell
			if adj := dp[i-1][j-1]; adj.ok {
				c = cell{ok: true, gaps: adj.gaps, start: adj.start, prev: j - 1}
			}
			if best.ok {
				alt := cell{ok: true, gaps: best.gaps + 1, start: best.start, prev: bestK}
				if w.better(alt, c) {
					c = alt
				}
			}
			dp[i][j] = c
		}
	}

	end := -1
	var last cell
	for j := 0; j < n; j++ {
		if w.better(dp[m-1][j], last) {
			last = dp[m-1][j]
			end = j
		}
	}
	if end < 0 {
		return alignment{}, false
	}
	a := alignment{runes: make([]int, m), offsets: make([]int, m), length: n}
	for i, j := m-1, end; i >= 0; i-- {
		a.runes[i] = j
		a.offsets[i] = offs[j]
		j = dp[i][j].prev
	}
	return a, true
}
