package source

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"

	"fortio.org/safecast"

	"sigil/internal/fatal"
)

// FileSet is the file table of one engine state. Index 0 is reserved for
// NoFileID. Mutation while frozen is an invariant violation.
type FileSet struct {
	files  []File
	index  map[string]FileID // path -> latest id
	frozen bool
}

// NewFileSet creates a file table holding only the NoFileID sentinel.
func NewFileSet() *FileSet {
	return &FileSet{
		files: make([]File, 1, 16),
		index: make(map[string]FileID),
	}
}

// Freeze sets the write guard and returns its previous value.
func (fileSet *FileSet) Freeze() bool {
	old := fileSet.frozen
	fileSet.frozen = true
	return old
}

// Unfreeze releases the write guard and returns its previous value.
func (fileSet *FileSet) Unfreeze() bool {
	old := fileSet.frozen
	fileSet.frozen = false
	return old
}

// Frozen reports whether the write guard is set.
func (fileSet *FileSet) Frozen() bool { return fileSet.frozen }

// Add stores a file, computes LineIdx and Hash, and returns a new FileID.
// Entering the same path twice is a caller bug.
func (fileSet *FileSet) Add(path string, content []byte, typ FileType, flags FileFlags) FileID {
	fatal.Check(!fileSet.frozen, "file table is frozen; cannot add %q", path)
	normalizedPath := normalizePath(path)
	if prev, ok := fileSet.index[normalizedPath]; ok {
		fatal.Check(fileSet.files[prev].Type == FileTombStone, "file %q entered twice", normalizedPath)
	}

	lenFiles, err := safecast.Conv[uint32](len(fileSet.files))
	if err != nil {
		panic(fmt.Errorf("len files overflow: %w", err))
	}
	id := FileID(lenFiles)
	fileSet.files = append(fileSet.files, makeFile(id, normalizedPath, content, typ, flags))
	fileSet.index[normalizedPath] = id
	return id
}

// Load reads a file from disk, normalizes CRLF/BOM, and calls Add.
func (fileSet *FileSet) Load(path string) (FileID, error) {
	// #nosec G304 -- path is provided by the caller
	content, err := os.ReadFile(path)
	if err != nil {
		return NoFileID, err
	}

	content, hadBOM := removeBOM(content)
	content, hadCRLF := normalizeCRLF(content)

	flags := FileFlags(0)
	if hadBOM {
		flags |= FileHadBOM
	}
	if hadCRLF {
		flags |= FileNormalizedCRLF
	}
	return fileSet.Add(path, content, FileNormal, flags), nil
}

// AddVirtual adds an in-memory file with the FileVirtual flag.
func (fileSet *FileSet) AddVirtual(name string, content []byte) FileID {
	return fileSet.Add(name, content, FileNormal, FileVirtual)
}

// Reserve enters an empty NotYetRead slot for path.
func (fileSet *FileSet) Reserve(path string) FileID {
	return fileSet.Add(path, nil, FileNotYetRead, 0)
}

// Fill replaces a reserved slot with its real content.
func (fileSet *FileSet) Fill(id FileID, content []byte, typ FileType) FileID {
	fatal.Check(!fileSet.frozen, "file table is frozen; cannot fill file %d", id)
	f := fileSet.Get(id)
	fatal.Check(f.Type == FileNotYetRead, "file %d (%s) is not a reserved slot", id, f.Path)
	fileSet.files[id] = makeFile(id, f.Path, content, typ, f.Flags)
	return id
}

// MarkTombStone keeps id reserved while marking the file as deleted.
func (fileSet *FileSet) MarkTombStone(id FileID) {
	fileSet.Get(id).Type = FileTombStone
}

// Get returns the file metadata for the given ID.
func (fileSet *FileSet) Get(id FileID) *File {
	fatal.Check(id != NoFileID && int(id) < len(fileSet.files), "file id %d out of range (len=%d)", id, len(fileSet.files))
	return &fileSet.files[id]
}

// Lookup returns the file for id or nil when it does not exist.
func (fileSet *FileSet) Lookup(id FileID) *File {
	if id == NoFileID || int(id) >= len(fileSet.files) {
		return nil
	}
	return &fileSet.files[id]
}

// FindByPath returns the latest file id for path.
func (fileSet *FileSet) FindByPath(path string) (FileID, bool) {
	id, ok := fileSet.index[normalizePath(path)]
	return id, ok
}

// Len reports number of files excluding the sentinel.
func (fileSet *FileSet) Len() int { return len(fileSet.files) - 1 }

// Files returns the stored files without the sentinel.
func (fileSet *FileSet) Files() []File {
	return fileSet.files[1:]
}

// Resolve converts a span into line and column positions.
func (fileSet *FileSet) Resolve(span Span) (start, end LineCol) {
	f := fileSet.Lookup(span.File)
	if f == nil {
		return LineCol{}, LineCol{}
	}
	return toLineCol(f.LineIdx, span.Start), toLineCol(f.LineIdx, span.End)
}

// Clone returns an independent table. Contents are shared since they are
// never written after Add.
func (fileSet *FileSet) Clone() *FileSet {
	out := &FileSet{
		files:  make([]File, len(fileSet.files), cap(fileSet.files)),
		index:  make(map[string]FileID, len(fileSet.index)),
		frozen: fileSet.frozen,
	}
	copy(out.files, fileSet.files)
	for k, v := range fileSet.index {
		out.index[k] = v
	}
	return out
}

// Restore rebuilds a table from previously stored files, keeping their ids.
// files must not include the sentinel.
func Restore(files []File) *FileSet {
	out := NewFileSet()
	for i := range files {
		f := files[i]
		f.LineIdx = buildLineIndex(f.Content)
		out.files = append(out.files, f)
		out.index[f.Path] = f.ID
	}
	return out
}

// GetLine returns 1-based line lineNum without the trailing newline.
func (f *File) GetLine(lineNum uint32) string {
	if lineNum == 0 || int(lineNum) > len(f.LineIdx)+1 {
		return ""
	}
	start := 0
	if lineNum > 1 {
		start = int(f.LineIdx[lineNum-2]) + 1
	}
	end := len(f.Content)
	if int(lineNum) <= len(f.LineIdx) {
		end = int(f.LineIdx[lineNum-1])
	}
	if start > end {
		return ""
	}
	return string(f.Content[start:end])
}

// FormatPath renders the path according to mode: "absolute", "relative",
// "basename" or "auto".
func (f *File) FormatPath(mode, baseDir string) string {
	switch mode {
	case "absolute":
		if abs, err := filepath.Abs(f.Path); err == nil {
			return abs
		}
		return f.Path
	case "relative":
		if baseDir != "" {
			if rel, err := filepath.Rel(baseDir, f.Path); err == nil {
				return rel
			}
		}
		return f.Path
	case "basename":
		return filepath.Base(f.Path)
	case "auto":
		if len(f.Path) < 40 || !filepath.IsAbs(f.Path) {
			return f.Path
		}
		return filepath.Base(f.Path)
	default:
		return f.Path
	}
}

func makeFile(id FileID, path string, content []byte, typ FileType, flags FileFlags) File {
	return File{
		ID:      id,
		Path:    path,
		Content: content,
		LineIdx: buildLineIndex(content),
		Hash:    sha256.Sum256(content),
		Flags:   flags,
		Type:    typ,
	}
}
