// Package linediff computes line level diffs between revisions.
package linediff

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

type Diff struct {
	Type  Operation
	Lines int
}

type Operation int8

const (
	DiffDelete Operation = Operation(diffmatchpatch.DiffDelete)
	DiffInsert Operation = Operation(diffmatchpatch.DiffInsert)
	DiffEqual  Operation = Operation(diffmatchpatch.DiffEqual)
)

// DefaultTimeout bounds the time spent looking for a minimal diff.
const DefaultTimeout = time.Second

// DoWithTimeout diffs two sequences of lines. Each line becomes one rune so the
// character diff of diffmatchpatch works on whole lines.
func DoWithTimeout(src, dst []string, timeout time.Duration) []Diff {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = timeout
	wSrc, wDst := linesToIndexes(src, dst)
	dmpd := dmp.DiffMainRunes(wSrc, wDst, false)
	return indexesToDiff(dmpd)
}

func indexesToDiff(diffs []diffmatchpatch.Diff) []Diff {
	hydrated := make([]Diff, 0, len(diffs))
	for _, aDiff := range diffs {
		hydrated = append(hydrated, Diff{
			Type:  Operation(aDiff.Type),
			Lines: utf8.RuneCountInString(aDiff.Text),
		})
	}
	return hydrated
}

func linesToIndexes(lines1, lines2 []string) ([]rune, []rune) {
	lineToIndex := make(map[string]int)
	indexes1 := toIndexes(lines1, lineToIndex)
	indexes2 := toIndexes(lines2, lineToIndex)
	return indexes1, indexes2
}

func toIndexes(lines []string, lineToIndex map[string]int) []rune {
	result := make([]rune, len(lines))
	for i, line := range lines {
		lineValue, ok := lineToIndex[line]

		if !ok {
			lineValue = len(lineToIndex)
			lineToIndex[line] = lineValue
		}

		result[i] = rune(lineValue)
	}
	return result
}

// SplitLines splits text in lines without their terminators. A trailing newline does not add an empty line.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}

	text = strings.TrimSuffix(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	return strings.Split(text, "\n")
}
