package linediff

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pescuma/minwatch/lib/model"
)

type Kind int

const (
	Removed Kind = iota
	Added
)

func (k Kind) String() string {
	if k == Removed {
		return "removed"
	}
	return "added"
}

const (
	DarkRemoval   = "#4a2324"
	DarkAddition  = "#1f3623"
	LightRemoval  = "#fbe9eb"
	LightAddition = "#ecfdf0"
)

type Row struct {
	Kind Kind `json:"-"`
	// Origin is R:<line in reference> or L:<line in latest>.
	Origin string `json:"origin"`
	Text   string `json:"text"`
	Color  string `json:"color"`
}

type View struct {
	Reference   model.Fingerprint `json:"reference"`
	Latest      model.Fingerprint `json:"latest"`
	Transformed bool              `json:"transformed"`
	Dark        bool              `json:"dark"`
	Rows        []Row             `json:"rows"`
}

// Sources gives the original text of a revision.
type Sources interface {
	Source(fp model.Fingerprint) (string, bool)
}

// Results gives the transformed text of a revision.
type Results interface {
	Result(fp model.Fingerprint) (model.Result[string], bool)
}

// Engine keeps the diff between the reference and the latest revision up to date.
// Every setter recomputes the whole diff.
type Engine struct {
	sources Sources
	results Results

	mutex       sync.RWMutex
	reference   model.Fingerprint
	latest      model.Fingerprint
	transformed bool
	dark        bool
	view        View
}

func NewEngine(sources Sources, results Results) *Engine {
	e := &Engine{
		sources:     sources,
		results:     results,
		transformed: true,
	}
	e.view = e.compute()
	return e
}

func (e *Engine) SetReference(fp model.Fingerprint) View {
	return e.update(func() { e.reference = fp })
}

func (e *Engine) SetLatest(fp model.Fingerprint) View {
	return e.update(func() { e.latest = fp })
}

func (e *Engine) SetTransformed(transformed bool) View {
	return e.update(func() { e.transformed = transformed })
}

func (e *Engine) SetDark(dark bool) View {
	return e.update(func() { e.dark = dark })
}

// Recompute refreshes the view after the stores changed.
func (e *Engine) Recompute() View {
	return e.update(func() {})
}

func (e *Engine) View() View {
	e.mutex.RLock()
	defer e.mutex.RUnlock()

	return e.view
}

func (e *Engine) update(change func()) View {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	change()
	e.view = e.compute()

	return e.view
}

func (e *Engine) compute() View {
	view := View{
		Reference:   e.reference,
		Latest:      e.latest,
		Transformed: e.transformed,
		Dark:        e.dark,
	}

	left, right, ok := e.texts()
	if !ok {
		return view
	}

	view.Rows = Compute(left, right, e.dark)
	return view
}

// texts selects the two sides to compare. Returns false while any of them is not available yet.
func (e *Engine) texts() ([]string, []string, bool) {
	if e.reference == "" || e.latest == "" {
		return nil, nil, false
	}

	if !e.transformed {
		if e.sources == nil {
			return nil, nil, false
		}

		ref, ok1 := e.sources.Source(e.reference)
		latest, ok2 := e.sources.Source(e.latest)
		if !ok1 || !ok2 {
			return nil, nil, false
		}

		return SplitLines(ref), SplitLines(latest), true
	}

	if e.results == nil {
		return nil, nil, false
	}

	ref, ok1 := e.results.Result(e.reference)
	latest, ok2 := e.results.Result(e.latest)
	if !ok1 || !ok2 {
		return nil, nil, false
	}

	if msg, failed := ref.Error(); failed {
		return []string{"Reference errored."}, SplitLines(strings.TrimSpace(msg)), true
	}
	if msg, failed := latest.Error(); failed {
		return []string{"Latest errored."}, SplitLines(strings.TrimSpace(msg)), true
	}

	refText, _ := ref.Value()
	latestText, _ := latest.Value()

	return SplitLines(refText), SplitLines(latestText), true
}

// Compute diffs the two sides and keeps only the removed and added lines.
// Inside each changed block the removals come first.
func Compute(reference, latest []string, dark bool) []Row {
	diffs := DoWithTimeout(reference, latest, DefaultTimeout)

	result := make([]Row, 0)
	var removed, added []Row

	flush := func() {
		result = append(result, removed...)
		result = append(result, added...)
		removed = removed[:0]
		added = added[:0]
	}

	ri, li := 0, 0
	for _, d := range diffs {
		switch d.Type {
		case DiffEqual:
			flush()
			ri += d.Lines
			li += d.Lines

		case DiffDelete:
			for i := 0; i < d.Lines; i++ {
				removed = append(removed, Row{
					Kind:   Removed,
					Origin: fmt.Sprintf("R:%v", ri),
					Text:   "- " + reference[ri],
					Color:  Color(Removed, dark),
				})
				ri++
			}

		case DiffInsert:
			for i := 0; i < d.Lines; i++ {
				added = append(added, Row{
					Kind:   Added,
					Origin: fmt.Sprintf("L:%v", li),
					Text:   "+ " + latest[li],
					Color:  Color(Added, dark),
				})
				li++
			}
		}
	}
	flush()

	return result
}

func Color(kind Kind, dark bool) string {
	switch {
	case dark && kind == Removed:
		return DarkRemoval
	case dark:
		return DarkAddition
	case kind == Removed:
		return LightRemoval
	default:
		return LightAddition
	}
}
