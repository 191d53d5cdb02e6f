package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Resolver
	SemaInfo                            Code = 3000
	SemaParentTypeNotDeclared           Code = 3201
	SemaEnumerableParentTypeNotDeclared Code = 3202
	SemaNotATypeVariable                Code = 3203
	SemaParentVarianceMismatch          Code = 3204
	SemaTypeMembersInWrongOrder         Code = 3205
	SemaVariantTypeMemberInClass        Code = 3206
	SemaIncludesNonModule               Code = 3207

	// I/O
	IOLoadFileError Code = 4001
	IOSnapshotError Code = 4002

	// Hierarchy loader
	LdrInfo                 Code = 4100
	LdrUnresolvedConstant   Code = 4101
	LdrBadVariance          Code = 4102
	LdrDuplicateDeclaration Code = 4103
	LdrInvalidDeclaration   Code = 4104

	// Observability
	ObsInfo    Code = 6000
	ObsTimings Code = 6001
)

var (
	codeDescription = map[Code]string{
		UnknownCode:                         "Unknown error",
		SemaInfo:                            "Semantic information",
		SemaParentTypeNotDeclared:           "Type member of a parent is not redeclared",
		SemaEnumerableParentTypeNotDeclared: "Enumerable element type is not redeclared",
		SemaNotATypeVariable:                "Parent type member is shadowed by a non-type member",
		SemaParentVarianceMismatch:          "Type member variance differs from the parent",
		SemaTypeMembersInWrongOrder:         "Type members are declared in the wrong order",
		SemaVariantTypeMemberInClass:        "Classes may only declare invariant type members",
		SemaIncludesNonModule:               "Only modules can be mixed in",
		IOLoadFileError:                     "I/O load file error",
		IOSnapshotError:                     "Snapshot error",
		LdrInfo:                             "Loader information",
		LdrUnresolvedConstant:               "Unable to resolve constant",
		LdrBadVariance:                      "Unknown variance",
		LdrDuplicateDeclaration:             "Conflicting declaration",
		LdrInvalidDeclaration:               "Invalid declaration",
		ObsInfo:                             "Observability information",
		ObsTimings:                          "Pipeline timings",
	}
)

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("SEM%04d", ic)
	case ic >= 4000 && ic < 4100:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 4100 && ic < 5000:
		return fmt.Sprintf("LDR%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("OBS%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
