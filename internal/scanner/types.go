package scanner

import (
	"encoding/json"
	"time"

	"github.com/fenilsonani/diskscope/internal/reducer"
	"github.com/fenilsonani/diskscope/internal/walker"
)

// TimeLayout is how record timestamps are rendered, in local time
const TimeLayout = "2006-01-02 15:04:05"

// LocalTime is a timestamp serialized as local "YYYY-MM-DD HH:MM:SS"
type LocalTime time.Time

func (t LocalTime) String() string {
	return time.Time(t).Local().Format(TimeLayout)
}

func (t LocalTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t LocalTime) MarshalYAML() (any, error) {
	return t.String(), nil
}

// Summary is the total size and file count of a category
type Summary = reducer.Summary

// CacheFile is one file under the user cache directory
type CacheFile struct {
	Path     string    `json:"path" yaml:"path"`
	Size     uint64    `json:"size" yaml:"size"`
	Modified LocalTime `json:"modified" yaml:"modified"`
}

// TrashFile is one top-level entry of the trash. DeletedDate is the file's
// modification time.
type TrashFile struct {
	Name        string    `json:"name" yaml:"name"`
	Path        string    `json:"path" yaml:"path"`
	Size        uint64    `json:"size" yaml:"size"`
	DeletedDate LocalTime `json:"deletedDate" yaml:"deletedDate"`
}

// LogFile is one file under the system log root
type LogFile struct {
	Path     string    `json:"path" yaml:"path"`
	Size     uint64    `json:"size" yaml:"size"`
	Modified LocalTime `json:"modified" yaml:"modified"`
}

// LargeFile is a file in a user folder above the size threshold
type LargeFile struct {
	Name     string    `json:"name" yaml:"name"`
	Path     string    `json:"path" yaml:"path"`
	Size     uint64    `json:"size" yaml:"size"`
	Modified LocalTime `json:"modified" yaml:"modified"`
}

func (f CacheFile) RankSize() uint64 { return f.Size }
func (f CacheFile) RankPath() string { return f.Path }
func (f TrashFile) RankSize() uint64 { return f.Size }
func (f TrashFile) RankPath() string { return f.Path }
func (f LogFile) RankSize() uint64   { return f.Size }
func (f LogFile) RankPath() string   { return f.Path }
func (f LargeFile) RankSize() uint64 { return f.Size }
func (f LargeFile) RankPath() string { return f.Path }

func newCacheFile(e walker.FileEntry) (CacheFile, bool) {
	return CacheFile{Path: e.Path, Size: e.Size, Modified: LocalTime(e.ModTime)}, true
}

func newTrashFile(e walker.FileEntry) (TrashFile, bool) {
	return TrashFile{Name: e.Name, Path: e.Path, Size: e.Size, DeletedDate: LocalTime(e.ModTime)}, true
}

func newLogFile(e walker.FileEntry) (LogFile, bool) {
	return LogFile{Path: e.Path, Size: e.Size, Modified: LocalTime(e.ModTime)}, true
}

func always(walker.FileEntry) bool { return true }

// above returns the large file predicate: strictly greater than threshold
func above(threshold uint64) func(walker.FileEntry) bool {
	return func(e walker.FileEntry) bool {
		return e.Size > threshold
	}
}

func newLargeFile(threshold uint64) func(walker.FileEntry) (LargeFile, bool) {
	keep := above(threshold)
	return func(e walker.FileEntry) (LargeFile, bool) {
		if !keep(e) {
			return LargeFile{}, false
		}
		return LargeFile{Name: e.Name, Path: e.Path, Size: e.Size, Modified: LocalTime(e.ModTime)}, true
	}
}
