package blobpack

// FormatVersion is the container format version this package reads and
// writes. There is no cross-version compatibility: readers reject any
// other version.
const FormatVersion uint16 = 1

// Kind identifies a container kind and binds it to its record type.
//
// The magic tag discriminates container files on disk; the name tag is
// repeated inside the index block so a container remains self-describing
// even without its header.
type Kind[R Record] struct {
	name  string
	magic [8]byte
}

// Name returns the kind tag stored in the index ("applications",
// "binaries" or "userdata").
func (k Kind[R]) Name() string { return k.name }

// Magic returns the 8-byte magic tag that opens containers of this kind.
func (k Kind[R]) Magic() [8]byte { return k.magic }

// The three container kinds.
var (
	// Applications is the immutable application catalog kind.
	Applications = Kind[*ApplicationEntry]{
		name:  "applications",
		magic: [8]byte{'A', 'P', 'P', 'B', 'L', 'O', 'B', '1'},
	}

	// Binaries is the immutable binary/tool catalog kind.
	Binaries = Kind[*BinaryEntry]{
		name:  "binaries",
		magic: [8]byte{'B', 'I', 'N', 'B', 'L', 'O', 'B', '1'},
	}

	// UserData is the mutable per-principal data store kind.
	UserData = Kind[*UserRecord]{
		name:  "userdata",
		magic: [8]byte{'U', 'S', 'E', 'R', 'B', 'L', 'O', 'B'},
	}
)
