package locus

import (
	"sort"

	"go.uber.org/zap"

	"github.com/inodb/vibe-locus/internal/transcript"
)

// Templates are the boundary donors of a transcript. Either may be nil.
type Templates struct {
	Five  *transcript.Transcript
	Three *transcript.Transcript
}

// boundaryGraph is a directed graph stored as an arena: node i has an edge
// to node j when transcript i can be extended to the boundary of j.
type boundaryGraph struct {
	ids       []string
	index     map[string]int
	outDegree []int
	parents   [][]int
	removed   []bool
}

func newBoundaryGraph(ids []string) *boundaryGraph {
	g := &boundaryGraph{
		ids:       ids,
		index:     make(map[string]int, len(ids)),
		outDegree: make([]int, len(ids)),
		parents:   make([][]int, len(ids)),
		removed:   make([]bool, len(ids)),
	}
	for i, id := range ids {
		g.index[id] = i
	}
	return g
}

func (g *boundaryGraph) addEdge(from, to string) {
	i, j := g.index[from], g.index[to]
	g.outDegree[i]++
	g.parents[j] = append(g.parents[j], i)
}

func (g *boundaryGraph) empty() bool {
	for _, r := range g.removed {
		if !r {
			return false
		}
	}
	return true
}

// sinks returns the live nodes without outgoing edges.
func (g *boundaryGraph) sinks() []int {
	var out []int
	for i := range g.ids {
		if !g.removed[i] && g.outDegree[i] == 0 {
			out = append(out, i)
		}
	}
	return out
}

// ancestors returns every live node with a directed path to n.
func (g *boundaryGraph) ancestors(n int) []int {
	seen := map[int]bool{n: true}
	stack := []int{n}
	var out []int
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, p := range g.parents[cur] {
			if seen[p] || g.removed[p] {
				continue
			}
			seen[p] = true
			out = append(out, p)
			stack = append(stack, p)
		}
	}
	return out
}

func (g *boundaryGraph) remove(n int) {
	if g.removed[n] {
		return
	}
	g.removed[n] = true
	for _, p := range g.parents[n] {
		g.outDegree[p]--
	}
}

// resolve peels sinks off the graph. Every ancestor of a sink is assigned
// the best reachable sink according to better.
func (g *boundaryGraph) resolve(better func(a, b string) bool) map[string]string {
	out := make(map[string]string)
	for !g.empty() {
		sinks := g.sinks()
		if len(sinks) == 0 {
			// only reachable with a cycle; boundary edges always point outwards
			break
		}
		best := make(map[int]int)
		for _, s := range sinks {
			for _, a := range g.ancestors(s) {
				cur, ok := best[a]
				if !ok || better(g.ids[s], g.ids[cur]) {
					best[a] = s
				}
			}
		}
		for a, s := range best {
			out[g.ids[a]] = g.ids[s]
		}
		for _, s := range sinks {
			g.remove(s)
		}
		for a := range best {
			g.remove(a)
		}
	}
	return out
}

// buildBoundaryGraph adds an edge for every member pair sharing the given
// genomic end. left selects the start coordinate, otherwise the end.
func (l *Locus) buildBoundaryGraph(members []*transcript.Transcript, left bool) *boundaryGraph {
	ids := make([]string, len(members))
	for i, t := range members {
		ids[i] = t.ID
	}
	g := newBoundaryGraph(ids)
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			var from, to *transcript.Transcript
			var ok bool
			if left {
				from, to, ok = l.shareStart(members[i], members[j])
			} else {
				from, to, ok = l.shareEnd(members[i], members[j])
			}
			if ok {
				g.addEdge(from.ID, to.ID)
			}
		}
	}
	return g
}

// resolveTemplates builds the 5' and 3' boundary graphs over the members and
// assigns every transcript at most one template per end: the highest scoring
// sink reachable from it, ties broken by id.
func (l *Locus) resolveTemplates() map[string]Templates {
	members := l.sortedMembers()
	better := func(a, b string) bool {
		sa, sb := l.members[a].Score, l.members[b].Score
		if sa != sb {
			return sa > sb
		}
		return a < b
	}

	leftOf := l.buildBoundaryGraph(members, true).resolve(better)
	rightOf := l.buildBoundaryGraph(members, false).resolve(better)

	fiveOf, threeOf := leftOf, rightOf
	if l.strand == transcript.StrandMinus {
		fiveOf, threeOf = rightOf, leftOf
	}

	out := make(map[string]Templates)
	for id, tpl := range fiveOf {
		t := out[id]
		t.Five = l.members[tpl]
		out[id] = t
	}
	for id, tpl := range threeOf {
		t := out[id]
		t.Three = l.members[tpl]
		out[id] = t
	}
	ids := make([]string, 0, len(out))
	for id := range out {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		l.logger.Debug("padding templates",
			zap.String("locus", l.id),
			zap.String("transcript", id),
			zap.String("five", templateID(out[id].Five)),
			zap.String("three", templateID(out[id].Three)))
	}
	return out
}

func templateID(t *transcript.Transcript) string {
	if t == nil {
		return ""
	}
	return t.ID
}

// shareStart tests whether the transcript starting later can be extended to
// the start of the other without adding more than ts_distance bases or
// ts_max_splices splice junctions. It returns the transcript to extend and
// its template.
func (l *Locus) shareStart(a, b *transcript.Transcript) (*transcript.Transcript, *transcript.Transcript, bool) {
	if a.Start() == b.Start() {
		return nil, nil, false
	}
	first, second := a, b
	if second.Start() < first.Start() {
		first, second = second, first
	}

	exon := second.Exons()[0]
	matched, err := first.Search(exon.Start, exon.End)
	if err != nil {
		l.logger.Debug("start sharing skipped",
			zap.String("transcript", second.ID), zap.String("template", first.ID), zap.Error(err))
		return nil, nil, false
	}
	if len(matched) == 0 {
		return nil, nil, false
	}
	if !matched[0].IsExon() || exon.Start < matched[0].Start {
		l.logger.Debug("first exon within an intron",
			zap.String("transcript", second.ID), zap.String("template", first.ID))
		return nil, nil, false
	}

	segs, err := first.FindUpstream(exon.Start, exon.End)
	if err != nil {
		l.logger.Debug("start sharing skipped",
			zap.String("transcript", second.ID), zap.String("template", first.ID), zap.Error(err))
		return nil, nil, false
	}
	var upstream []transcript.Interval
	for _, s := range segs {
		if s.IsExon() {
			upstream = append(upstream, s.Interval)
		}
	}

	var distance int64
	splices := 0
	if matched[0].Start < second.Start() {
		if len(upstream) > 0 {
			splices++
		}
		distance += second.Start() - matched[0].Start
	}
	for _, up := range upstream {
		if up.Start == first.Start() {
			splices++
		} else {
			splices += 2
		}
		distance += up.Len()
	}

	ok := distance <= l.engine.cfg.TSDistance && splices <= l.engine.cfg.TSMaxSplices
	l.logger.Debug("start sharing",
		zap.String("transcript", second.ID),
		zap.String("template", first.ID),
		zap.Int64("distance", distance),
		zap.Int("splices", splices),
		zap.Bool("shared", ok))
	return second, first, ok
}

// shareEnd is the mirror of shareStart for the genomic end.
func (l *Locus) shareEnd(a, b *transcript.Transcript) (*transcript.Transcript, *transcript.Transcript, bool) {
	if a.End() == b.End() {
		return nil, nil, false
	}
	first, second := a, b
	if second.End() < first.End() {
		first, second = second, first
	}

	exons := first.Exons()
	exon := exons[len(exons)-1]
	matched, err := second.Search(exon.Start, exon.End)
	if err != nil {
		l.logger.Debug("end sharing skipped",
			zap.String("transcript", first.ID), zap.String("template", second.ID), zap.Error(err))
		return nil, nil, false
	}
	if len(matched) == 0 {
		return nil, nil, false
	}
	last := matched[len(matched)-1]
	if !last.IsExon() || exon.End > last.End {
		l.logger.Debug("last exon within an intron",
			zap.String("transcript", first.ID), zap.String("template", second.ID))
		return nil, nil, false
	}

	segs, err := second.FindDownstream(exon.Start, exon.End)
	if err != nil {
		l.logger.Debug("end sharing skipped",
			zap.String("transcript", first.ID), zap.String("template", second.ID), zap.Error(err))
		return nil, nil, false
	}
	var downstream []transcript.Interval
	for _, s := range segs {
		if s.IsExon() {
			downstream = append(downstream, s.Interval)
		}
	}

	var distance int64
	splices := 0
	if last.End > first.End() {
		if len(downstream) > 0 {
			splices++
		}
		distance += last.End - first.End()
	}
	for _, down := range downstream {
		if down.End == second.End() {
			splices++
		} else {
			splices += 2
		}
		distance += down.Len()
	}

	ok := distance <= l.engine.cfg.TSDistance && splices <= l.engine.cfg.TSMaxSplices
	l.logger.Debug("end sharing",
		zap.String("transcript", first.ID),
		zap.String("template", second.ID),
		zap.Int64("distance", distance),
		zap.Int("splices", splices),
		zap.Bool("shared", ok))
	return first, second, ok
}
