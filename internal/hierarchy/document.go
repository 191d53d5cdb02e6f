package hierarchy

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Format selects the document syntax.
type Format uint8

const (
	// FormatAuto picks the format from the file extension.
	FormatAuto Format = iota
	FormatTOML
	FormatYAML
)

func (f Format) String() string {
	switch f {
	case FormatTOML:
		return "toml"
	case FormatYAML:
		return "yaml"
	default:
		return "auto"
	}
}

// DetectFormat maps a path to its document format.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return FormatAuto, fmt.Errorf("%s: unknown hierarchy format (want .toml, .yaml or .yml)", path)
}

// Document is one hierarchy file.
type Document struct {
	Classes []ClassDecl `toml:"class" yaml:"classes"`
}

// ClassDecl declares a class or module. Kind is "class", "module" or empty;
// an empty kind with a superclass means class, otherwise the decision is
// left to ancestor finalization.
type ClassDecl struct {
	Name         string          `toml:"name" yaml:"name"`
	Kind         string          `toml:"kind" yaml:"kind"`
	SuperClass   string          `toml:"superclass" yaml:"superclass"`
	Mixins       []string        `toml:"mixins" yaml:"mixins"`
	ClassMethods string          `toml:"class_methods" yaml:"class_methods"`
	Abstract     bool            `toml:"abstract" yaml:"abstract"`
	Interface    bool            `toml:"interface" yaml:"interface"`
	Sealed       bool            `toml:"sealed" yaml:"sealed"`
	Final        bool            `toml:"final" yaml:"final"`
	TypeMembers  []TypeParamDecl `toml:"type_member" yaml:"type_members"`
	Methods      []MethodDecl    `toml:"method" yaml:"methods"`
	Fields       []FieldDecl     `toml:"field" yaml:"fields"`
}

// TypeParamDecl declares a type member of a class or a type argument of a
// method.
type TypeParamDecl struct {
	Name     string `toml:"name" yaml:"name"`
	Variance string `toml:"variance" yaml:"variance"`
	Fixed    bool   `toml:"fixed" yaml:"fixed"`
}

// MethodDecl declares a method. Self methods live on the singleton class.
type MethodDecl struct {
	Name       string          `toml:"name" yaml:"name"`
	Self       bool            `toml:"self" yaml:"self"`
	Visibility string          `toml:"visibility" yaml:"visibility"`
	Args       []ArgDecl       `toml:"args" yaml:"args"`
	TypeArgs   []TypeParamDecl `toml:"type_args" yaml:"type_args"`
}

// ArgDecl declares one method argument. Kind is one of positional,
// optional, keyword, keyword_optional, rest, kwrest or block.
type ArgDecl struct {
	Name string `toml:"name" yaml:"name"`
	Kind string `toml:"kind" yaml:"kind"`
}

// FieldDecl declares an instance field or, with Static, a class constant.
type FieldDecl struct {
	Name   string `toml:"name" yaml:"name"`
	Static bool   `toml:"static" yaml:"static"`
}

// Parse decodes content in the given format.
func Parse(content []byte, format Format) (*Document, error) {
	var doc Document
	switch format {
	case FormatTOML:
		md, err := toml.Decode(string(content), &doc)
		if err != nil {
			return nil, fmt.Errorf("failed to parse TOML: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("unknown key %q", undecoded[0].String())
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(content))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported hierarchy format %s", format)
	}
	return &doc, nil
}
