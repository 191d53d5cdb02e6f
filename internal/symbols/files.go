package symbols

import (
	"sigil/internal/fatal"
	"sigil/internal/source"
)

// EnterFile adds a file. The file guard must be released.
func (s *State) EnterFile(path string, content []byte, typ source.FileType) source.FileID {
	return s.files.Add(path, content, typ, 0)
}

// ReserveFileRef enters an empty NotYetRead slot whose content arrives via
// EnterNewFileAt.
func (s *State) ReserveFileRef(path string) source.FileID {
	return s.files.Reserve(path)
}

// EnterNewFileAt fills the reserved slot id with the content of path.
func (s *State) EnterNewFileAt(path string, content []byte, typ source.FileType, id source.FileID) source.FileID {
	got, ok := s.files.FindByPath(path)
	fatal.Check(ok && got == id, "slot %d is reserved for %q, not %q", id, s.files.Get(id).Path, path)
	return s.files.Fill(id, content, typ)
}

// FindFileByPath returns the id of path or NoFileID.
func (s *State) FindFileByPath(path string) source.FileID {
	id, ok := s.files.FindByPath(path)
	if !ok {
		return source.NoFileID
	}
	return id
}

// MarkFileAsTombstone keeps id reserved while dropping the file.
func (s *State) MarkFileAsTombstone(id source.FileID) {
	fatal.Check(!s.files.Frozen(), "file table is frozen; cannot tombstone file %d", id)
	s.files.MarkTombStone(id)
}

// IsPayloadLoc reports whether span lies in a payload file.
func (s *State) IsPayloadLoc(span source.Span) bool {
	return s.files.Lookup(span.File).IsPayload()
}
