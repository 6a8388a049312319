package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/fenilsonani/diskscope/internal/catalog"
	"github.com/fenilsonani/diskscope/internal/config"
	"github.com/fenilsonani/diskscope/internal/metrics"
	"github.com/fenilsonani/diskscope/internal/platform"
	"github.com/fenilsonani/diskscope/internal/progress"
	"github.com/fenilsonani/diskscope/internal/testutil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const threshold = 100 * testutil.MiB

func newFixtureScanner(f *testutil.TestFixture, cfg *config.Config, opts ...Option) *Scanner {
	cat := catalog.New(cfg, f.Dirs(), f.Layout())
	return New(cat, afero.NewOsFs(), opts...)
}

// =============================================================================
// Trash
// =============================================================================

func TestTrashSummary_SumsTopLevelFiles(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateSizedFile("home/.local/share/Trash/files/a", 10)
	f.CreateSizedFile("home/.local/share/Trash/files/b", 20)
	f.CreateSizedFile("home/.local/share/Trash/files/c", 30)
	f.CreateSizedFile("home/.local/share/Trash/files/nested/ignored", 1000)

	s := newFixtureScanner(f, f.Config())

	sum, err := s.TrashSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{TotalSize: 60, FileCount: 3}, sum)
}

func TestScanTrash_Records(t *testing.T) {
	f := testutil.NewFixture(t)
	path := f.CreateFileWithAge("home/.local/share/Trash/files/photo (2).jpg", []byte("jpeg"), time.Hour)

	files, err := newFixtureScanner(f, f.Config()).ScanTrash(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "photo (2).jpg", files[0].Name)
	assert.Equal(t, path, files[0].Path)
	assert.Equal(t, uint64(4), files[0].Size)
}

func TestScanTrash_MissingTrashIsEmpty(t *testing.T) {
	f := testutil.NewFixture(t)
	s := New(catalog.New(f.Config(), platform.Static{Home: f.Path("elsewhere")}, f.Layout()), afero.NewOsFs())

	files, err := s.ScanTrash(context.Background())
	require.NoError(t, err)
	assert.Empty(t, files)
}

// =============================================================================
// Large files
// =============================================================================

func TestScanLargeFiles_MultipleRoots(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateSizedFile("home/Downloads/small.iso", 50*testutil.MiB)
	f.CreateSizedFile("home/Downloads/big.iso", 150*testutil.MiB)
	f.CreateSizedFile("home/Videos/huge.mkv", 300*testutil.MiB)
	// Documents, Pictures and Desktop do not exist

	s := newFixtureScanner(f, f.Config())

	files, err := s.ScanLargeFiles(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, f.Path("home/Videos/huge.mkv"), files[0].Path)
	assert.Equal(t, "huge.mkv", files[0].Name)
	assert.Equal(t, uint64(300*testutil.MiB), files[0].Size)
	assert.Equal(t, f.Path("home/Downloads/big.iso"), files[1].Path)

	sum, err := s.LargeFilesSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{TotalSize: 450 * testutil.MiB, FileCount: 2}, sum)
}

func TestScanLargeFiles_ThresholdIsExclusive(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateSizedFile("home/Desktop/exact.bin", threshold)
	f.CreateSizedFile("home/Desktop/above.bin", threshold+1)

	files, err := newFixtureScanner(f, f.Config()).ScanLargeFiles(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "above.bin", files[0].Name)
}

func TestScanLargeFiles_ResultCap(t *testing.T) {
	f := testutil.NewFixture(t)
	for i := 1; i <= 5; i++ {
		f.CreateSizedFile(fmt.Sprintf("home/Documents/f%d.bin", i), threshold+int64(i))
	}

	cfg := f.Config()
	cfg.LargeFiles.MaxResults = 3

	files, err := newFixtureScanner(f, cfg).ScanLargeFiles(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, []string{"f5.bin", "f4.bin", "f3.bin"}, []string{files[0].Name, files[1].Name, files[2].Name})
}

func TestLargeFilesSummary_NoHomeIsFatal(t *testing.T) {
	f := testutil.NewFixture(t)
	s := New(catalog.New(f.Config(), platform.Static{}, f.Layout()), afero.NewOsFs())

	_, err := s.LargeFilesSummary(context.Background())
	assert.ErrorIs(t, err, platform.ErrNoHomeDir)

	_, err = s.ScanCache(context.Background())
	assert.ErrorIs(t, err, platform.ErrNoCacheDir)
}

// =============================================================================
// Cache and logs
// =============================================================================

func TestScanCache_EntryCap(t *testing.T) {
	f := testutil.NewFixture(t)
	for i := 0; i < 12; i++ {
		f.CreateSizedFile(fmt.Sprintf("home/.cache/app%d/blob", i), int64(i+1))
	}

	cfg := f.Config()
	cfg.Categories.Cache.MaxEntries = 5

	files, err := newFixtureScanner(f, cfg).ScanCache(context.Background())
	require.NoError(t, err)
	assert.Len(t, files, 5)
	for i := 1; i < len(files); i++ {
		assert.GreaterOrEqual(t, files[i-1].Size, files[i].Size)
	}
}

func TestScanLogs_UnreadableSubdirDoesNotFailScan(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateSizedFile("var/log/syslog", 100)
	f.CreateSizedFile("var/log/apt/history.log", 50)
	f.CreateUnreadableDir("var/log/private")

	col := metrics.NewCollector()
	s := newFixtureScanner(f, f.Config(), WithMetrics(col))

	files, err := s.ScanLogs(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, filepath.Join(f.LogDir, "syslog"), files[0].Path)

	sum, err := s.LogSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{TotalSize: 150, FileCount: 2}, sum)

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(col))
	families, err := reg.Gather()
	require.NoError(t, err)

	var softFailures float64
	for _, mf := range families {
		if mf.GetName() == "diskscope_scan_soft_failures_total" {
			softFailures = mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	assert.Equal(t, 2.0, softFailures)
}

func TestCacheSummary_PartitionIndependent(t *testing.T) {
	f := testutil.NewFixture(t)
	for i := 0; i < 40; i++ {
		f.CreateSizedFile(fmt.Sprintf("home/.cache/d%d/f%d", i%4, i), int64(i))
	}

	var baseline Summary
	for _, workers := range []int{1, 3, 16} {
		sum, err := newFixtureScanner(f, f.Config(), WithWorkers(workers)).CacheSummary(context.Background())
		require.NoError(t, err)
		if workers == 1 {
			baseline = sum
			continue
		}
		assert.Equal(t, baseline, sum)
	}
	assert.Equal(t, Summary{TotalSize: 780, FileCount: 40}, baseline)
}

func TestSummarize_UnknownCategory(t *testing.T) {
	f := testutil.NewFixture(t)
	_, err := newFixtureScanner(f, f.Config()).Summarize(context.Background(), catalog.Category("bogus"))
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

// =============================================================================
// Progress and serialization
// =============================================================================

func TestScan_PublishesRootProgress(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateSizedFile("home/.cache/x", 7)

	r := progress.NewReporter()
	events := r.Subscribe()

	_, err := newFixtureScanner(f, f.Config(), WithProgress(r)).ScanCache(context.Background())
	require.NoError(t, err)

	var phases []progress.Phase
	for len(events) > 0 {
		ev := (<-events).(*progress.RootProgress)
		assert.Equal(t, "cache", ev.Category)
		assert.NotEmpty(t, ev.ScanID)
		phases = append(phases, ev.Phase)
	}
	assert.Equal(t, []progress.Phase{progress.PhaseScanning, progress.PhaseComplete}, phases)
}

func TestScan_PublishesResolutionFailure(t *testing.T) {
	f := testutil.NewFixture(t)
	r := progress.NewReporter()
	events := r.Subscribe()

	s := New(catalog.New(f.Config(), platform.Static{}, f.Layout()), afero.NewOsFs(), WithProgress(r))
	_, err := s.CacheSummary(context.Background())
	require.ErrorIs(t, err, platform.ErrNoCacheDir)

	require.Len(t, events, 1)
	ev := (<-events).(*progress.RootProgress)
	assert.Equal(t, progress.PhaseError, ev.Phase)
	assert.Equal(t, "cache", ev.Category)
	assert.ErrorIs(t, ev.Error, platform.ErrNoCacheDir)
}

func TestLocalTime_JSON(t *testing.T) {
	ts := time.Date(2024, 3, 5, 7, 8, 9, 0, time.Local)
	out, err := json.Marshal(CacheFile{Path: "/c/a", Size: 1, Modified: LocalTime(ts)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"path":"/c/a","size":1,"modified":"2024-03-05 07:08:09"}`, string(out))

	out, err = json.Marshal(TrashFile{Name: "a", Path: "/t/a", DeletedDate: LocalTime(ts)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"a","path":"/t/a","size":0,"deletedDate":"2024-03-05 07:08:09"}`, string(out))
}
