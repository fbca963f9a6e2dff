package history

import (
	"os"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/pescuma/minwatch/lib/model"
)

// TimeFormat is the ISO-8601 layout used for the datetime field.
const TimeFormat = "2006-01-02T15:04:05.000000Z07:00"

// Document is the exported history: every distinct source, and the ordered list of observed changes.
type Document struct {
	Versions map[model.Fingerprint]string `json:"versions"`
	History  []Entry                      `json:"history"`
}

type Entry struct {
	Datetime string            `json:"datetime"`
	SHA256   model.Fingerprint `json:"sha256"`
}

func NewDocument(versions map[model.Fingerprint]string, entries []model.HistoryEntry) *Document {
	result := &Document{
		Versions: make(map[model.Fingerprint]string, len(versions)),
		History:  make([]Entry, 0, len(entries)),
	}

	for k, v := range versions {
		result.Versions[k] = v
	}

	for _, e := range entries {
		result.History = append(result.History, Entry{
			Datetime: e.ObservedAt.Format(TimeFormat),
			SHA256:   e.Fingerprint,
		})
	}

	return result
}

// Validate checks that every history entry references a stored version.
func (d *Document) Validate() error {
	for i, e := range d.History {
		if _, ok := d.Versions[e.SHA256]; !ok {
			return errors.Errorf("history entry %v references unknown version %v", i, e.SHA256)
		}
	}

	return nil
}

// Entries parses the history back into model entries.
func (d *Document) Entries() ([]model.HistoryEntry, error) {
	result := make([]model.HistoryEntry, 0, len(d.History))
	for _, e := range d.History {
		t, err := time.Parse(TimeFormat, e.Datetime)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid datetime %v", e.Datetime)
		}

		result = append(result, model.HistoryEntry{
			ObservedAt:  t,
			Fingerprint: e.SHA256,
		})
	}
	return result, nil
}

func (d *Document) Fingerprints() []model.Fingerprint {
	result := make([]model.Fingerprint, 0, len(d.Versions))
	for k := range d.Versions {
		result = append(result, k)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// Save writes the document. Files ending in .sqlite are written as a database, everything else as json.
func Save(path string, doc *Document) error {
	err := doc.Validate()
	if err != nil {
		return err
	}

	switch {
	case strings.HasSuffix(path, ".sqlite"):
		return saveSqlite(path, doc)
	default:
		return saveJSON(path, doc)
	}
}

func Load(path string) (*Document, error) {
	switch {
	case strings.HasSuffix(path, ".sqlite"):
		return loadSqlite(path)
	default:
		return loadJSON(path)
	}
}

func saveJSON(path string, doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return errors.Wrap(err, "could not encode history")
	}

	err = os.WriteFile(path, data, 0o644)
	if err != nil {
		return errors.Wrapf(err, "could not write %v", path)
	}

	return nil
}

func loadJSON(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read %v", path)
	}

	var result Document
	err = json.Unmarshal(data, &result)
	if err != nil {
		return nil, errors.Wrapf(err, "could not decode %v", path)
	}

	if result.Versions == nil {
		result.Versions = map[model.Fingerprint]string{}
	}

	return &result, nil
}
