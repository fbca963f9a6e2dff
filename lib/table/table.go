// Package table builds the revision table: one row per history entry with the
// transform size, the compression ratio and the metric of the revision.
package table

import (
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/pescuma/minwatch/lib/metric"
	"github.com/pescuma/minwatch/lib/model"
)

type State int

const (
	Pending State = iota
	Failed
	Ok
	Unavailable
)

func (s State) String() string {
	switch s {
	case Pending:
		return "Pending"
	case Failed:
		return "Error"
	case Ok:
		return "Ok"
	case Unavailable:
		return "Unavailable"
	default:
		return "Unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type Colors struct {
	Foreground string `json:"foreground,omitempty"`
	Background string `json:"background"`
}

var darkColors = map[State]Colors{
	Pending: {Foreground: "#777777", Background: "#3c3c3c"},
	Failed:  {Foreground: "#ffad33", Background: "#4a2324"},
	Ok:      {Foreground: "#4cff4c", Background: "#1f3623"},
}

var lightColors = map[State]Colors{
	Pending: {Background: "#fffbe7"},
	Failed:  {Background: "#fbe9eb"},
	Ok:      {Background: "#ecfdf0"},
}

func ColorsFor(state State, dark bool) Colors {
	if dark {
		return darkColors[state]
	}
	return lightColors[state]
}

type Cell struct {
	State State  `json:"state"`
	Text  string `json:"text"`
}

type Row struct {
	Time        string            `json:"time"`
	ObservedAt  time.Time         `json:"observedAt"`
	Fingerprint model.Fingerprint `json:"fingerprint"`
	Latest      bool              `json:"latest"`
	State       State             `json:"state"`
	Size        Cell              `json:"size"`
	Ratio       Cell              `json:"ratio"`
	Metric      Cell              `json:"metric"`
	Colors      Colors            `json:"colors"`
}

type Input struct {
	History    []model.HistoryEntry
	Latest     model.Fingerprint
	Sources    map[model.Fingerprint]string
	Transforms map[model.Fingerprint]model.Result[string]
	Metrics    map[model.Fingerprint]model.Result[float64]
	Dark       bool
}

func Build(in *Input) []Row {
	return lo.Map(in.History, func(h model.HistoryEntry, _ int) Row {
		return buildRow(in, h)
	})
}

func buildRow(in *Input, h model.HistoryEntry) Row {
	row := Row{
		Time:        h.ObservedAt.Format("15:04:05"),
		ObservedAt:  h.ObservedAt,
		Fingerprint: h.Fingerprint,
		Latest:      h.Fingerprint == in.Latest,
		State:       Pending,
		Size:        Cell{State: Pending, Text: Pending.String()},
		Ratio:       Cell{State: Pending, Text: Pending.String()},
		Metric:      metricCell(in.Metrics, h.Fingerprint),
	}

	if r, ok := in.Transforms[h.Fingerprint]; ok {
		if text, ok := r.Value(); ok {
			row.State = Ok
			row.Size = Cell{State: Ok, Text: fmt.Sprintf("%v", len(text))}
			row.Ratio = ratioCell(in.Sources, h.Fingerprint, len(text))
		} else {
			row.State = Failed
			row.Size = Cell{State: Failed, Text: Failed.String()}
			row.Ratio = Cell{State: Failed, Text: Failed.String()}
		}
	}

	row.Colors = ColorsFor(row.State, in.Dark)

	return row
}

func ratioCell(sources map[model.Fingerprint]string, fp model.Fingerprint, size int) Cell {
	source, ok := sources[fp]
	if !ok || len(source) == 0 {
		return Cell{State: Unavailable, Text: Unavailable.String()}
	}

	return Cell{State: Ok, Text: fmt.Sprintf("%.3f", float64(size)/float64(len(source)))}
}

func metricCell(metrics map[model.Fingerprint]model.Result[float64], fp model.Fingerprint) Cell {
	r, ok := metrics[fp]
	if !ok {
		return Cell{State: Unavailable, Text: Unavailable.String()}
	}

	if msg, failed := r.Error(); failed {
		return Cell{State: Failed, Text: msg}
	}

	v, _ := r.Value()
	return Cell{State: Ok, Text: metric.Format(v)}
}
