package persistence

const (
	// Version is the only file format version written and accepted.
	Version = 1

	// MagicSize is the length of every file magic.
	MagicSize = 9
)

var (
	// IndexMagic identifies chunked dataset index files (.idx).
	IndexMagic = [MagicSize]byte{'M', 'M', 'I', 'D', 'R', 'E', 'T', 0, 0}
	// KNNMagic identifies KNN neighbor map files.
	KNNMagic = [MagicSize]byte{'K', 'N', 'N', 'R', 'E', 'T', 'M', 0, 0}
)
