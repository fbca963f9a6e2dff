package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinMax(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1, Min(3, 1, 2))
	assert.Equal(t, 3, Max(3, 1, 2))
	assert.Equal(t, "a", Min("b", "a"))
}

func TestIIf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "yes", IIf(true, "yes", "no"))
	assert.Equal(t, "no", IIf(false, "yes", "no"))
}

func TestPathAbs(t *testing.T) {
	t.Parallel()

	home, err := os.UserHomeDir()
	require.NoError(t, err)

	p, err := PathAbs("~/x.frag")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "x.frag"), p)

	p, err = PathAbs("x.frag")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(p))
}

func TestFileExists(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	ok, err := FileExists(dir)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = FileExists(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestParallelForCollectsEverything(t *testing.T) {
	t.Parallel()

	in := []int{1, 2, 3, 4, 5}
	out, err := ParallelFor(in, func(i int) (int, error) {
		return i * 10, nil
	}, ParallelOptions{Routines: len(in)}).Collect()

	require.NoError(t, err)
	assert.ElementsMatch(t, []int{10, 20, 30, 40, 50}, out)
}

func TestParallelForAbortsOnError(t *testing.T) {
	t.Parallel()

	in := make([]int, 100)
	for i := range in {
		in[i] = i
	}

	_, err := ParallelFor(in, func(i int) (int, error) {
		if i == 3 {
			return 0, errors.New("three")
		}
		return i, nil
	}, ParallelOptions{Routines: 2}).Collect()

	assert.EqualError(t, err, "three")
}
