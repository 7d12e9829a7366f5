package blobpack

import "errors"

// Sentinel errors.
var (
	// ErrFormat is returned when a file's magic tag does not match the
	// expected container kind.
	ErrFormat = errors.New("blobpack: bad magic")

	// ErrUnsupportedVersion is returned when a container's format version
	// differs from the version this package supports.
	ErrUnsupportedVersion = errors.New("blobpack: unsupported format version")

	// ErrIndexParse is returned when the index block cannot be parsed.
	ErrIndexParse = errors.New("blobpack: malformed index")

	// ErrNotFound is returned when a requested entry key is absent.
	ErrNotFound = errors.New("blobpack: entry not found")

	// ErrDuplicateKey is returned when adding an entry whose key already exists.
	ErrDuplicateKey = errors.New("blobpack: duplicate key")

	// ErrCompression is returned when a payload fails to decompress.
	ErrCompression = errors.New("blobpack: decompression failed")

	// ErrIntegrity is returned when decompressed payload bytes do not match
	// the checksum recorded in the index.
	ErrIntegrity = errors.New("blobpack: checksum mismatch")

	// ErrArchive is returned when packing or unpacking an archive fails.
	ErrArchive = errors.New("blobpack: archive failure")

	// ErrSourceNotFound is returned when the source path of an add does not exist.
	ErrSourceNotFound = errors.New("blobpack: source path not found")

	// ErrLocked is returned when a container's advisory lock is held by
	// another process.
	ErrLocked = errors.New("blobpack: container locked")
)
