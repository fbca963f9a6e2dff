package linediff

import (
	"testing"

	"github.com/bloomberg/go-testgroup"
	"github.com/samber/lo"

	"github.com/pescuma/minwatch/lib/model"
)

type fakeSources map[model.Fingerprint]string

func (f fakeSources) Source(fp model.Fingerprint) (string, bool) {
	s, ok := f[fp]
	return s, ok
}

type fakeResults map[model.Fingerprint]model.Result[string]

func (f fakeResults) Result(fp model.Fingerprint) (model.Result[string], bool) {
	r, ok := f[fp]
	return r, ok
}

func texts(rows []Row) []string {
	return lo.Map(rows, func(r Row, _ int) string { return r.Text })
}

func origins(rows []Row) []string {
	return lo.Map(rows, func(r Row, _ int) string { return r.Origin })
}

func TestCompute(t *testing.T) {
	testgroup.RunInParallel(t, &ComputeTests{})
}

type ComputeTests struct {
}

func (g *ComputeTests) ChangedLine(t *testgroup.T) {
	rows := Compute([]string{"a", "b"}, []string{"a", "c"}, false)

	t.Equal([]string{"- b", "+ c"}, texts(rows))
	t.Equal([]string{"R:1", "L:1"}, origins(rows))
	t.Equal([]string{LightRemoval, LightAddition}, lo.Map(rows, func(r Row, _ int) string { return r.Color }))
}

func (g *ComputeTests) Identity(t *testgroup.T) {
	lines := []string{"a", "b", "c"}

	t.Empty(Compute(lines, lines, false))
}

func (g *ComputeTests) Empty(t *testgroup.T) {
	t.Empty(Compute(nil, nil, true))
}

func (g *ComputeTests) OnlyAdditions(t *testgroup.T) {
	rows := Compute(nil, []string{"x", "y"}, true)

	t.Equal([]string{"+ x", "+ y"}, texts(rows))
	t.Equal([]string{"L:0", "L:1"}, origins(rows))
	t.Equal(DarkAddition, rows[0].Color)
	t.Equal(Added, rows[0].Kind)
}

func (g *ComputeTests) OnlyRemovals(t *testgroup.T) {
	rows := Compute([]string{"x", "y"}, nil, true)

	t.Equal([]string{"- x", "- y"}, texts(rows))
	t.Equal([]string{"R:0", "R:1"}, origins(rows))
	t.Equal(DarkRemoval, rows[1].Color)
}

func (g *ComputeTests) RemovalsBeforeAdditions(t *testgroup.T) {
	rows := Compute([]string{"a", "b", "c", "d"}, []string{"a", "x", "y", "d"}, false)

	t.Equal([]string{"- b", "- c", "+ x", "+ y"}, texts(rows))
	t.Equal([]string{"R:1", "R:2", "L:1", "L:2"}, origins(rows))
}

func (g *ComputeTests) RepeatedLinesUsePositions(t *testgroup.T) {
	rows := Compute([]string{"a", "a", "b"}, []string{"a", "a", "a", "b"}, false)

	t.Equal([]string{"+ a"}, texts(rows))
	t.Len(rows, 1)
	t.Equal("L", rows[0].Origin[:1])
}

func (g *ComputeTests) SeparateBlocks(t *testgroup.T) {
	rows := Compute([]string{"1", "2", "3", "4", "5"}, []string{"1", "two", "3", "4", "five"}, false)

	t.Equal([]string{"- 2", "+ two", "- 5", "+ five"}, texts(rows))
	t.Equal([]string{"R:1", "L:1", "R:4", "L:4"}, origins(rows))
}

func TestSplitLines(t *testing.T) {
	testgroup.RunInParallel(t, &SplitLinesTests{})
}

type SplitLinesTests struct {
}

func (g *SplitLinesTests) TrailingNewline(t *testgroup.T) {
	t.Equal([]string{"a", "b"}, SplitLines("a\nb\n"))
}

func (g *SplitLinesTests) NoTrailingNewline(t *testgroup.T) {
	t.Equal([]string{"a", "b"}, SplitLines("a\nb"))
}

func (g *SplitLinesTests) CRLF(t *testgroup.T) {
	t.Equal([]string{"a", "", "b"}, SplitLines("a\r\n\r\nb\r\n"))
}

func (g *SplitLinesTests) Empty(t *testgroup.T) {
	t.Empty(SplitLines(""))
}

func TestEngine(t *testing.T) {
	testgroup.RunInParallel(t, &EngineTests{})
}

type EngineTests struct {
}

func (g *EngineTests) newEngine() *Engine {
	sources := fakeSources{
		"h1":  "a\nb\n",
		"h2":  "a\nc\n",
		"bad": "b\n",
	}
	results := fakeResults{
		"h1":  model.Ok("A\nB\n"),
		"h2":  model.Ok("A\nC\nD\n"),
		"bad": model.Err[string]("line 1: error\nline 2: error\n"),
	}
	return NewEngine(sources, results)
}

func (g *EngineTests) EmptyUntilBothSidesAreSet(t *testgroup.T) {
	e := g.newEngine()

	t.Empty(e.View().Rows)

	e.SetReference("h1")
	t.Empty(e.View().Rows)

	view := e.SetLatest("h2")
	t.Len(view.Rows, 3)
}

func (g *EngineTests) Transformed(t *testgroup.T) {
	e := g.newEngine()
	e.SetReference("h1")
	view := e.SetLatest("h2")

	t.True(view.Transformed)
	t.Equal([]string{"- B", "+ C", "+ D"}, texts(view.Rows))
	t.Equal([]string{"R:1", "L:1", "L:2"}, origins(view.Rows))
}

func (g *EngineTests) Original(t *testgroup.T) {
	e := g.newEngine()
	e.SetReference("h1")
	e.SetLatest("h2")
	view := e.SetTransformed(false)

	t.Equal([]string{"- b", "+ c"}, texts(view.Rows))
	t.Equal([]string{"R:1", "L:1"}, origins(view.Rows))
}

func (g *EngineTests) IdentityIsEmpty(t *testgroup.T) {
	e := g.newEngine()
	e.SetReference("h2")
	view := e.SetLatest("h2")

	t.Empty(view.Rows)
}

func (g *EngineTests) DarkColors(t *testgroup.T) {
	e := g.newEngine()
	e.SetReference("h1")
	e.SetLatest("h2")
	view := e.SetDark(true)

	t.Equal(DarkRemoval, view.Rows[0].Color)
	t.Equal(DarkAddition, view.Rows[1].Color)
	t.Equal(view, e.View())
}

func (g *EngineTests) ReferenceErrored(t *testgroup.T) {
	e := g.newEngine()
	e.SetReference("bad")
	view := e.SetLatest("h2")

	t.Equal([]string{"- Reference errored.", "+ line 1: error", "+ line 2: error"}, texts(view.Rows))
}

func (g *EngineTests) LatestErrored(t *testgroup.T) {
	e := g.newEngine()
	e.SetReference("h1")
	view := e.SetLatest("bad")

	t.Equal([]string{"- Latest errored.", "+ line 1: error", "+ line 2: error"}, texts(view.Rows))
}

func (g *EngineTests) OriginalIgnoresTransformErrors(t *testgroup.T) {
	e := g.newEngine()
	e.SetReference("bad")
	e.SetLatest("h2")
	view := e.SetTransformed(false)

	t.Equal([]string{"- b", "+ a", "+ c"}, texts(view.Rows))
}

func (g *EngineTests) PendingSideIsEmpty(t *testgroup.T) {
	e := g.newEngine()
	e.SetReference("h1")
	view := e.SetLatest("h3")

	t.Empty(view.Rows)
}

func (g *EngineTests) RecomputeSeesNewResults(t *testgroup.T) {
	results := fakeResults{"h1": model.Ok("x\n")}
	e := NewEngine(fakeSources{}, results)
	e.SetReference("h1")
	e.SetLatest("h2")
	t.Empty(e.View().Rows)

	results["h2"] = model.Ok("y\n")
	view := e.Recompute()

	t.Equal([]string{"- x", "+ y"}, texts(view.Rows))
}
