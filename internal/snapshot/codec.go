// Package snapshot persists resolved symbol states with msgpack.
package snapshot

import (
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"sigil/internal/symbols"
)

// SchemaVersion must be bumped whenever symbols.Image changes shape.
const SchemaVersion uint16 = 1

const magic = "sigil-snapshot"

// ErrIncompatible marks snapshots written by another schema or built-in set.
var ErrIncompatible = errors.New("incompatible snapshot")

type envelope struct {
	Magic    string
	Schema   uint16
	Builtins string
	Image    symbols.Image
}

// Encode writes s to w. Every id is preserved.
func Encode(w io.Writer, s *symbols.State) error {
	enc := msgpack.NewEncoder(w)
	enc.UseCompactInts(true)
	env := envelope{Magic: magic, Schema: SchemaVersion, Builtins: symbols.BootstrapVersion, Image: s.Export()}
	if err := enc.Encode(&env); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return nil
}

// Decode reads a snapshot written by Encode.
func Decode(r io.Reader) (*symbols.State, error) {
	env, err := decodeEnvelope(r)
	if err != nil {
		return nil, err
	}
	s, err := symbols.Import(env.Image)
	if err != nil {
		return nil, fmt.Errorf("failed to restore snapshot: %w", err)
	}
	return s, nil
}

func decodeEnvelope(r io.Reader) (*envelope, error) {
	var env envelope
	if err := msgpack.NewDecoder(r).Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if env.Magic != magic {
		return nil, fmt.Errorf("%w: not a snapshot", ErrIncompatible)
	}
	if env.Schema != SchemaVersion {
		return nil, fmt.Errorf("%w: schema %d, want %d", ErrIncompatible, env.Schema, SchemaVersion)
	}
	if env.Builtins != symbols.BootstrapVersion {
		return nil, fmt.Errorf("%w: built-ins %q, want %q", ErrIncompatible, env.Builtins, symbols.BootstrapVersion)
	}
	return &env, nil
}

// Info summarizes a snapshot without restoring it.
type Info struct {
	Schema   uint16
	Builtins string
	Names    int
	Types    int
	Files    []string
	Symbols  map[string]int // per arena, sentinels excluded
}

// Inspect reads the header and counts of a snapshot.
func Inspect(r io.Reader) (Info, error) {
	env, err := decodeEnvelope(r)
	if err != nil {
		return Info{}, err
	}
	info := Info{
		Schema:   env.Schema,
		Builtins: env.Builtins,
		Names:    len(env.Image.Names) - 1,
		Types:    len(env.Image.Types.Types),
		Symbols:  make(map[string]int, len(env.Image.Arenas)),
	}
	for _, f := range env.Image.Files {
		info.Files = append(info.Files, f.Path)
	}
	for k, recs := range env.Image.Arenas {
		info.Symbols[symbols.Kind(k).String()] = max(len(recs)-1, 0) // #nosec G115 -- k is an arena kind
	}
	return info, nil
}
