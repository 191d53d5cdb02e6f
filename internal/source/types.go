package source

type (
	// FileID uniquely identifies a source file within a FileSet.
	// NoFileID (0) is reserved for synthesized locations.
	FileID uint32
	// FileFlags encodes metadata about a source file.
	FileFlags uint8
	// FileType tells the engine where a file came from and whether it is live.
	FileType uint8
)

// NoFileID marks a location that does not belong to any file.
const NoFileID FileID = 0

const (
	// FileVirtual indicates the file was added from memory (test, stdin, etc.).
	FileVirtual FileFlags = 1 << iota
	FileHadBOM
	FileNormalizedCRLF
)

const (
	// FileNormal is a user file.
	FileNormal FileType = iota
	// FilePayload holds built-in definitions; diagnostics on it are relaxed.
	FilePayload
	// FileNotYetRead is a reserved slot whose content arrives later.
	FileNotYetRead
	// FileTombStone is a deleted file whose id must stay reserved.
	FileTombStone
)

var fileTypeNames = [...]string{
	FileNormal:     "normal",
	FilePayload:    "payload",
	FileNotYetRead: "not-yet-read",
	FileTombStone:  "tombstone",
}

func (t FileType) String() string {
	if int(t) < len(fileTypeNames) {
		return fileTypeNames[t]
	}
	return "unknown"
}

// File is one loaded hierarchy file. Hash is the SHA-256 of Content and
// LineIdx holds the offset of every newline.
type File struct {
	ID      FileID
	Path    string
	Content []byte
	LineIdx []uint32
	Hash    [32]byte
	Flags   FileFlags
	Type    FileType
}

// IsPayload reports whether the file holds built-in definitions.
func (f *File) IsPayload() bool { return f != nil && f.Type == FilePayload }

// LineCol represents a human-readable position in a source file.
type LineCol struct {
	Line uint32 // 1-based
	Col  uint32 // 1-based
}
