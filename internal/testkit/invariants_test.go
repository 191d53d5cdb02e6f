package testkit

import (
	"context"
	"strings"
	"testing"

	"sigil/internal/diag"
	"sigil/internal/resolver"
	"sigil/internal/source"
	"sigil/internal/symbols"
)

func resolvedState(t *testing.T) (*symbols.State, symbols.Ref, symbols.Ref) {
	t.Helper()
	s := symbols.New()
	s.Unfreeze(symbols.AllTables)
	file := s.EnterFile("lib.sigil", []byte("class Box\nmodule Walk\n"), source.FileNormal)

	walk := s.EnterClass(source.Span{File: file, Start: 10, End: 21}, symbols.Root, s.Names().EnterConstantText("Walk"))
	s.Data(walk).SetIsModule(true)
	box := s.EnterClass(source.Span{File: file, Start: 0, End: 9}, symbols.Root, s.Names().EnterConstantText("Box"))
	s.Data(box).SetIsModule(false)
	s.Data(box).Mixins = append(s.Data(box).Mixins, walk)
	s.EnterTypeMember(source.Span{File: file, Start: 6, End: 9}, box, s.Names().EnterConstantText("Elem"), symbols.Invariant)

	bag := diag.NewBag(0)
	rep := diag.BagReporter{Bag: bag}
	resolver.FinalizeAncestors(context.Background(), s, rep)
	resolver.FinalizeSymbols(context.Background(), s, rep)
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %d", bag.Len())
	}
	return s, box, walk
}

func TestCheckStateInvariantsPasses(t *testing.T) {
	s := symbols.New()
	if err := CheckStateInvariants(s); err != nil {
		t.Fatalf("fresh state: %v", err)
	}
	s, _, _ = resolvedState(t)
	if err := CheckStateInvariants(s); err != nil {
		t.Fatalf("resolved state: %v", err)
	}
	if err := CheckStateInvariants(s.DeepCopy(false)); err != nil {
		t.Fatalf("deep copy: %v", err)
	}
}

func TestCheckStateInvariantsFindsViolations(t *testing.T) {
	cases := []struct {
		name    string
		corrupt func(s *symbols.State, box, walk symbols.Ref)
		want    string
	}{
		{
			name: "duplicate mixin",
			corrupt: func(s *symbols.State, box, walk symbols.Ref) {
				s.Data(box).Mixins = append(s.Data(box).Mixins, walk)
			},
			want: "twice",
		},
		{
			name: "self mixin",
			corrupt: func(s *symbols.State, box, _ symbols.Ref) {
				s.Data(box).Mixins = append(s.Data(box).Mixins, box)
			},
			want: "mixes in itself",
		},
		{
			name: "superclass cycle",
			corrupt: func(s *symbols.State, box, walk symbols.Ref) {
				s.Data(walk).SuperClass = box
				s.Data(box).SuperClass = walk
			},
			want: "does not terminate",
		},
		{
			name: "foreign type member",
			corrupt: func(s *symbols.State, box, walk symbols.Ref) {
				s.Data(walk).TypeMembers = append(s.Data(walk).TypeMembers, s.Data(box).TypeMembers...)
			},
			want: "is owned by",
		},
		{
			name: "alias to a class",
			corrupt: func(s *symbols.State, box, walk symbols.Ref) {
				d := s.Data(box)
				d.Aliases = append(d.Aliases, symbols.Alias{Parent: symbols.ArrayElem, Own: walk})
			},
			want: "aliases",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, box, walk := resolvedState(t)
			tc.corrupt(s, box, walk)
			err := CheckStateInvariants(s)
			if err == nil {
				t.Fatalf("expected violation")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}
