package reducer

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/fenilsonani/diskscope/internal/catalog"
	"github.com/fenilsonani/diskscope/internal/testutil"
	"github.com/fenilsonani/diskscope/internal/walker"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureEntries(t *testing.T, n int) (afero.Fs, []walker.FileEntry) {
	t.Helper()

	files := make(map[string]int64, n)
	for i := 1; i <= n; i++ {
		files[fmt.Sprintf("/data/d%d/f%03d", i%5, i)] = int64(i * 10)
	}
	fs := testutil.MemFS(t, files)
	entries, _ := walker.New(fs).Collect(catalog.ScanRoot{Path: "/data", MaxDepth: 3})
	require.Len(t, entries, n)
	return fs, entries
}

// =============================================================================
// Summary monoid
// =============================================================================

func TestSummary_Add(t *testing.T) {
	a := Summary{TotalSize: 10, FileCount: 1}
	b := Summary{TotalSize: 32, FileCount: 4}

	assert.Equal(t, Summary{TotalSize: 42, FileCount: 5}, a.Add(b))
	assert.Equal(t, a.Add(b), b.Add(a))
	assert.Equal(t, a, a.Add(Summary{}))
}

// =============================================================================
// Aggregate
// =============================================================================

func TestAggregate_PartitionIndependent(t *testing.T) {
	fs, entries := fixtureEntries(t, 97)

	// sum of 10..970 step 10
	want := Summary{TotalSize: 10 * 97 * 98 / 2, FileCount: 97}

	for _, workers := range []int{1, 2, 3, 8, 97, 500} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			got, err := New(fs, WithWorkers(workers)).Aggregate(context.Background(), entries, func(walker.FileEntry) bool { return true })
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestAggregate_RandomPartitions(t *testing.T) {
	fs, entries := fixtureEntries(t, 97)
	large := func(e walker.FileEntry) bool { return e.Size > 500 }

	want, err := New(fs, WithWorkers(1)).Aggregate(context.Background(), entries, large)
	require.NoError(t, err)
	// sizes 510..970
	require.Equal(t, Summary{TotalSize: 10 * (97*98/2 - 50*51/2), FileCount: 47}, want)

	rng := rand.New(rand.NewPCG(7, 42))
	for i := range 50 {
		shuffled := slices.Clone(entries)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		workers := 1 + rng.IntN(len(shuffled)+10)

		got, err := New(fs, WithWorkers(workers)).Aggregate(context.Background(), shuffled, large)
		require.NoError(t, err)
		assert.Equal(t, want, got, "round=%d workers=%d", i, workers)
	}
}

func TestAggregate_Predicate(t *testing.T) {
	fs, entries := fixtureEntries(t, 20)

	got, err := New(fs, WithWorkers(4)).Aggregate(context.Background(), entries, func(e walker.FileEntry) bool {
		return e.Size > 150
	})
	require.NoError(t, err)
	// sizes 160..200
	assert.Equal(t, Summary{TotalSize: 160 + 170 + 180 + 190 + 200, FileCount: 5}, got)
}

func TestAggregate_Empty(t *testing.T) {
	got, err := New(afero.NewMemMapFs()).Aggregate(context.Background(), nil, func(walker.FileEntry) bool { return true })
	require.NoError(t, err)
	assert.Equal(t, Summary{}, got)
}

// =============================================================================
// Collect
// =============================================================================

func TestCollect_PartitionIndependent(t *testing.T) {
	fs, entries := fixtureEntries(t, 50)
	keepEven := func(e walker.FileEntry) (string, bool) {
		return e.Path, e.Size%20 == 0
	}

	var baseline []string
	for _, workers := range []int{1, 2, 7, 64} {
		got, err := Collect(context.Background(), New(fs, WithWorkers(workers)), entries, keepEven)
		require.NoError(t, err)
		slices.Sort(got)
		if baseline == nil {
			baseline = got
			continue
		}
		assert.Equal(t, baseline, got, "workers=%d", workers)
	}
	assert.Len(t, baseline, 25)
}

func TestCollect_DropsEntriesThatVanished(t *testing.T) {
	fs, entries := fixtureEntries(t, 10)
	gone := entries[3].Path
	require.NoError(t, fs.Remove(gone))

	got, err := Collect(context.Background(), New(fs, WithWorkers(3)), entries, func(e walker.FileEntry) (string, bool) {
		return e.Path, true
	})
	require.NoError(t, err)
	assert.Len(t, got, 9)
	assert.NotContains(t, got, gone)
}

func TestCollect_UsesFreshMetadata(t *testing.T) {
	fs, entries := fixtureEntries(t, 1)
	testutil.WriteMemFile(t, fs, entries[0].Path, 4096)

	got, err := Collect(context.Background(), New(fs), entries, func(e walker.FileEntry) (uint64, bool) {
		return e.Size, true
	})
	require.NoError(t, err)
	assert.Equal(t, []uint64{4096}, got)
}

func TestCollect_CancelledContext(t *testing.T) {
	fs, entries := fixtureEntries(t, 10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Collect(ctx, New(fs, WithWorkers(2)), entries, func(e walker.FileEntry) (string, bool) {
		return e.Path, true
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_DefaultWorkers(t *testing.T) {
	assert.Positive(t, New(afero.NewMemMapFs()).Workers())
	assert.Positive(t, New(afero.NewMemMapFs(), WithWorkers(-3)).Workers())
	assert.Equal(t, 5, New(afero.NewMemMapFs(), WithWorkers(5)).Workers())
}
