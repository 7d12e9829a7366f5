package blobpack

import (
	"io/fs"
	"strings"
	"time"
)

// FileStat describes one regular file in an entry's manifest.
//
// The manifest is advisory: it is captured at packing time and is not
// re-verified against archive contents on read. Mode is used while packing
// to classify files and is not serialized.
type FileStat struct {
	Path string      `json:"path"`
	Size int64       `json:"size"`
	Mode fs.FileMode `json:"-"`
}

// EntryBase is the metadata shared by every container kind: identity,
// advisory metadata, and the payload slice coordinates.
//
// Size is the uncompressed archive byte length. Offset is relative to the
// start of the payload region; Offset and CompressedSize together define
// the payload slice. Checksum is the SHA-256 hex digest of the
// uncompressed archive bytes.
type EntryBase struct {
	Key            string     `json:"key"`
	Version        string     `json:"version,omitempty"`
	Description    string     `json:"description,omitempty"`
	Size           uint64     `json:"size"`
	CompressedSize uint64     `json:"compressed_size"`
	Offset         uint64     `json:"offset"`
	Checksum       string     `json:"checksum"`
	Files          []FileStat `json:"files,omitempty"`
	Dependencies   []string   `json:"dependencies,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func (b *EntryBase) base() *EntryBase { return b }

// Record is the capability surface shared by all entry types. Only types
// in this package implement it.
type Record interface {
	base() *EntryBase
}

// finalizer is implemented by record types that derive extra metadata from
// the packed manifest.
type finalizer interface {
	finalize(files []FileStat, now time.Time)
}

// ApplicationEntry is one application in an [Applications] catalog.
type ApplicationEntry struct {
	EntryBase

	// Name is the human-readable application name.
	Name string `json:"name,omitempty"`
}

// BinaryEntry is one binary package in a [Binaries] catalog.
type BinaryEntry struct {
	EntryBase

	// Provides lists the capability names (typically executable names)
	// this package supplies.
	Provides []string `json:"provides,omitempty"`

	// EnvVars are environment variables consumers should set when using
	// the package.
	EnvVars map[string]string `json:"env_vars,omitempty"`

	Architecture string `json:"architecture,omitempty"`
	OSType       string `json:"os_type,omitempty"`

	// Executables and Libraries are detected from the packed manifest at
	// add time: files with an execute bit that are not shared objects, and
	// shared-object files respectively.
	Executables []string `json:"executables,omitempty"`
	Libraries   []string `json:"libraries,omitempty"`
}

func (e *BinaryEntry) finalize(files []FileStat, _ time.Time) {
	e.Executables = e.Executables[:0]
	e.Libraries = e.Libraries[:0]
	for _, f := range files {
		if isSharedObject(f.Path) {
			e.Libraries = append(e.Libraries, f.Path)
			continue
		}
		if f.Mode&0o111 != 0 {
			e.Executables = append(e.Executables, f.Path)
		}
	}
}

func isSharedObject(path string) bool {
	return strings.HasSuffix(path, ".so") || strings.Contains(path, ".so.")
}

// UserRecord is one principal's data in a [UserData] store.
type UserRecord struct {
	EntryBase

	// QuotaMB is an advisory storage quota. It is recorded but not enforced.
	QuotaMB int64 `json:"quota_mb,omitempty"`

	// FileCount is the number of regular files captured at packing time.
	FileCount int `json:"file_count"`

	// UpdatedAt is the time of the most recent add or update.
	UpdatedAt time.Time `json:"updated_at"`

	// Revision counts updates to this record. It starts at 1 and is
	// incremented only by merge-mode updates.
	Revision uint64 `json:"revision"`
}

func (u *UserRecord) finalize(files []FileStat, now time.Time) {
	u.FileCount = len(files)
	u.UpdatedAt = now
	if u.Revision == 0 {
		u.Revision = 1
	}
}
