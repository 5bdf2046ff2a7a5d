package fsview

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/mortdb/mort/storage"
)

/*
The file-system view resolves which physical files belong to a file group: one
base file plus the ordered chain of delta log files layered on top of it, and
the latest commit instant visible to a read. File names encode the group id,
commit instant, and for log files a sequence number:

    <group>_<instant>.base
    <group>_<instant>.log.<seq>

The view selects the base file with the greatest instant and every log file
at or after that instant, ordered by instant and then sequence. The
reconciliation core consumes the resulting FileSlice and never mutates it.
*/

////////////////////////////////////////////////////////////////////////////////

// FileSlice is the association of one base file with its delta log chain.
type FileSlice struct {
	GroupID string
	// BaseFile is the object id of the base file, empty for log-only groups.
	BaseFile string
	// BaseInstant is the commit instant of the base file.
	BaseInstant string
	// LogFiles is the ordered list of delta log file object ids.
	LogFiles []string
	// LatestInstant is the latest commit instant visible to this read.
	LatestInstant string
}

// FileKind distinguishes base files from log files.
type FileKind uint8

const (
	FileInvalid FileKind = iota
	FileBase
	FileLog
)

// FileInfo is the parsed form of an object name.
type FileInfo struct {
	GroupID string
	Instant string
	Kind    FileKind
	Seq     int
}

// NewGroupID allocates a fresh file group id.
func NewGroupID() string {
	return uuid.NewString()
}

// BaseFileName returns the object name for a base file.
func BaseFileName(group, instant string) string {
	return fmt.Sprintf("%s_%s.base", group, instant)
}

// LogFileName returns the object name for a log file.
func LogFileName(group, instant string, seq int) string {
	return fmt.Sprintf("%s_%s.log.%d", group, instant, seq)
}

// ParseFileName parses an object name into its components.
func ParseFileName(name string) (FileInfo, error) {
	group, rest, ok := strings.Cut(name, "_")
	if !ok || group == "" {
		return FileInfo{}, fmt.Errorf("malformed file name: %s", name)
	}
	if instant, found := strings.CutSuffix(rest, ".base"); found {
		return FileInfo{GroupID: group, Instant: instant, Kind: FileBase}, nil
	}
	instant, seqstr, ok := strings.Cut(rest, ".log.")
	if !ok || instant == "" {
		return FileInfo{}, fmt.Errorf("malformed file name: %s", name)
	}
	seq, err := strconv.Atoi(seqstr)
	if err != nil {
		return FileInfo{}, fmt.Errorf("malformed log sequence in %s: %w", name, err)
	}
	return FileInfo{GroupID: group, Instant: instant, Kind: FileLog, Seq: seq}, nil
}

// View resolves file slices for file groups.
type View interface {
	FileSlice(ctx context.Context, group string) (FileSlice, error)
}

// StoreView is a view backed by a storage provider listing.
type StoreView struct {
	store storage.Provider
}

// NewStoreView returns a view over the given store.
func NewStoreView(store storage.Provider) *StoreView {
	return &StoreView{store: store}
}

// FileSlice resolves the latest file slice of the given group.
func (v *StoreView) FileSlice(ctx context.Context, group string) (FileSlice, error) {
	names, err := v.store.List(ctx, group+"_")
	if err != nil {
		return FileSlice{}, fmt.Errorf("failed to list file group %s: %w", group, err)
	}
	if len(names) == 0 {
		return FileSlice{}, ErrFileGroupNotFound
	}
	var base FileInfo
	logs := []FileInfo{}
	latest := ""
	for _, name := range names {
		info, err := ParseFileName(name)
		if err != nil {
			return FileSlice{}, err
		}
		if info.Instant > latest {
			latest = info.Instant
		}
		switch info.Kind {
		case FileBase:
			if info.Instant > base.Instant {
				base = info
			}
		case FileLog:
			logs = append(logs, info)
		}
	}
	slice := FileSlice{GroupID: group, LatestInstant: latest}
	if base.Kind == FileBase {
		slice.BaseFile = BaseFileName(group, base.Instant)
		slice.BaseInstant = base.Instant
	}
	slices.SortFunc(logs, func(a, b FileInfo) int {
		if a.Instant != b.Instant {
			return strings.Compare(a.Instant, b.Instant)
		}
		return a.Seq - b.Seq
	})
	for _, info := range logs {
		if info.Instant < base.Instant {
			continue
		}
		slice.LogFiles = append(slice.LogFiles, LogFileName(group, info.Instant, info.Seq))
	}
	return slice, nil
}
