package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprintIsDeterministic(t *testing.T) {
	t.Parallel()

	a := ComputeFingerprint([]byte("a\nb\nc\n"))
	b := ComputeFingerprint([]byte("a\nb\nc\n"))
	c := ComputeFingerprint([]byte("a\nb\nd\n"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, string(a), 64)
	assert.Equal(t, "e3b0c442", ComputeFingerprint(nil).Short())
}

func TestStoreIsWriteOnce(t *testing.T) {
	t.Parallel()

	s := NewStore[string]()

	assert.True(t, s.Put("h1", "ABC"))
	assert.False(t, s.Put("h1", "XYZ"))

	v, ok := s.Get("h1")
	assert.True(t, ok)
	assert.Equal(t, "ABC", v)
	assert.Equal(t, 1, s.Len())
}

func TestStoreClear(t *testing.T) {
	t.Parallel()

	s := NewStore[int]()
	s.Put("b", 2)
	s.Put("a", 1)

	assert.Equal(t, []Fingerprint{"a", "b"}, s.Keys())

	snapshot := s.Snapshot()
	s.Clear()

	assert.Equal(t, 0, s.Len())
	assert.False(t, s.Has("a"))
	assert.Len(t, snapshot, 2)

	assert.True(t, s.Put("a", 3))
}

func TestResult(t *testing.T) {
	t.Parallel()

	ok := Ok("text")
	v, isOk := ok.Value()
	assert.True(t, isOk)
	assert.Equal(t, "text", v)
	assert.False(t, ok.IsErr())

	failed := Err[string]("boom")
	msg, isErr := failed.Error()
	assert.True(t, isErr)
	assert.Equal(t, "boom", msg)
	_, isOk = failed.Value()
	assert.False(t, isOk)
}

func TestResultStore(t *testing.T) {
	t.Parallel()

	s := NewResultStore[float64]()
	assert.True(t, s.Put("h", Err[float64]("Errored")))
	assert.False(t, s.Put("h", Ok(1.5)))

	r, ok := s.Get("h")
	assert.True(t, ok)
	assert.True(t, r.IsErr())
}
