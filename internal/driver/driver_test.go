package driver

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"sigil/internal/diag"
	"sigil/internal/fatal"
	"sigil/internal/symbols"
	"sigil/internal/testkit"
)

const shapes = `
[[class]]
name = "Base"
kind = "class"

  [[class.type_member]]
  name = "Elem"

[[class]]
name = "Greeting"
kind = "module"

[[class]]
name = "Derived"
superclass = "Base"
mixins = ["Greeting"]
`

const clean = `
[[class]]
name = "Base"
kind = "class"

  [[class.type_member]]
  name = "Elem"

[[class]]
name = "Derived"
superclass = "Base"

  [[class.type_member]]
  name = "Elem"
`

func codes(bag *diag.Bag) []diag.Code {
	var out []diag.Code
	for _, d := range bag.Items() {
		out = append(out, d.Code)
	}
	return out
}

func TestResolveEndToEnd(t *testing.T) {
	res, err := Resolve(context.Background(), []Input{{Path: "shapes.toml", Content: []byte(shapes)}}, Options{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got := codes(res.Bag); !slices.Equal(got, []diag.Code{diag.SemaParentTypeNotDeclared}) {
		t.Fatalf("diagnostics = %v", got)
	}
	if err := testkit.CheckStateInvariants(res.State); err != nil {
		t.Fatalf("invariants: %v", err)
	}
	if res.Ancestors.Classes != 2 || res.Ancestors.Modules != 1 {
		t.Fatalf("ancestor stats = %+v", res.Ancestors)
	}
	if !res.State.SymbolTableFrozen() {
		t.Fatalf("resolved state must be frozen again")
	}
	if len(res.Timer.Phases()) != 3 {
		t.Fatalf("phases = %+v", res.Timer.Phases())
	}
}

func TestResolveReportsIOErrorsAndTimings(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	if err := os.WriteFile(good, []byte("classes:\n  - {name: Thing, kind: class}\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	inputs := []Input{
		{Path: filepath.Join(dir, "missing.toml")},
		{Path: filepath.Join(dir, "broken.toml"), Content: []byte("[[class]\n")},
		{Path: good},
	}
	res, err := Resolve(context.Background(), inputs, Options{Timings: true})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if n := res.Bag.Count(diag.IOLoadFileError); n != 2 {
		t.Fatalf("IOLoadFileError count = %d", n)
	}
	if n := res.Bag.Count(diag.ObsTimings); n != 1 {
		t.Fatalf("ObsTimings count = %d", n)
	}
	if len(res.Files) != 1 || !res.State.LookupClassPath(symbols.Root, []string{"Thing"}).Exists() {
		t.Fatalf("good input not loaded")
	}
}

func TestResolveWithPayload(t *testing.T) {
	dir := t.TempDir()
	payload := filepath.Join(dir, "core.toml")
	if err := os.WriteFile(payload, []byte("[[class]]\nname = \"Core\"\nkind = \"module\"\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	user := Input{Path: "user.toml", Content: []byte("[[class]]\nname = \"App\"\nmixins = [\"Core\"]\n")}

	withPayload, err := Resolve(context.Background(), []Input{user}, Options{Payload: []string{payload}, PreallocateNames: 4096})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if withPayload.Bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics %v", codes(withPayload.Bag))
	}
	if withPayload.State.Names().Capacity() < 4096 {
		t.Fatalf("name table not preallocated")
	}
	if withPayload.Ancestors.Modules != 1 {
		t.Fatalf("payload modules must not be counted: %+v", withPayload.Ancestors)
	}

	without, err := Resolve(context.Background(), []Input{user}, Options{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if without.Bag.Count(diag.LdrUnresolvedConstant) != 1 {
		t.Fatalf("Core should be unresolved without the payload")
	}
}

func TestResolveCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Resolve(ctx, []Input{{Path: "x.toml", Content: []byte("")}}, Options{}); err == nil {
		t.Fatalf("canceled context must abort the run")
	}
}

func TestSpeculateLeavesBaseAlone(t *testing.T) {
	ctx := context.Background()
	base, err := Resolve(ctx, []Input{{Path: "clean.toml", Content: []byte(clean)}}, Options{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if base.Bag.Len() != 0 {
		t.Fatalf("base diagnostics %v", codes(base.Bag))
	}
	baseHash := base.State.Hash()
	classes := base.State.ClassesUsed()

	overlays := []Input{
		{Path: "extra.toml", Content: []byte("[[class]]\nname = \"Extra\"\nsuperclass = \"Base\"\n")},
		{Path: "empty.toml", Content: []byte("")},
		{Path: "module.yaml", Content: []byte("classes:\n  - {name: Helper, kind: module}\n")},
	}
	forks, err := Speculate(ctx, base, overlays, Options{})
	if err != nil {
		t.Fatalf("Speculate: %v", err)
	}
	if len(forks) != 3 {
		t.Fatalf("forks = %d", len(forks))
	}

	extra := forks[0]
	if !extra.Changed || !slices.Equal(codes(extra.Result.Bag), []diag.Code{diag.SemaParentTypeNotDeclared}) {
		t.Fatalf("extra fork: changed=%v diags=%v", extra.Changed, codes(extra.Result.Bag))
	}
	if forks[1].Changed || forks[1].Result.Bag.Len() != 0 {
		t.Fatalf("empty overlay must not change anything")
	}
	if !forks[2].Changed || forks[2].Overlay.Path != "module.yaml" {
		t.Fatalf("forks out of order or unchanged: %+v", forks[2].Overlay)
	}
	for i, f := range forks {
		if err := testkit.CheckStateInvariants(f.Result.State); err != nil {
			t.Fatalf("fork %d: %v", i, err)
		}
		if f.Result.State.ID() == base.State.ID() {
			t.Fatalf("fork %d shares the base identity", i)
		}
	}

	if !base.State.Hash().Equal(baseHash) || base.State.ClassesUsed() != classes {
		t.Fatalf("speculation modified the base state")
	}
	if base.State.LookupClassPath(symbols.Root, []string{"Extra"}).Exists() {
		t.Fatalf("overlay class leaked into the base")
	}
}

func TestSpeculateRaisesForkViolationOnCaller(t *testing.T) {
	ctx := context.Background()
	base, err := Resolve(ctx, []Input{{Path: "clean.toml", Content: []byte(clean)}}, Options{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	overlays := []Input{
		{Path: "empty.toml", Content: []byte("")},
		{Path: "cycle.yaml", Content: []byte("classes:\n  - {name: A, kind: module, mixins: [B]}\n  - {name: B, kind: module, mixins: [A]}\n")},
	}
	err = fatal.Catch(func() { _, _ = Speculate(ctx, base, overlays, Options{}) })
	if !fatal.IsViolation(err) || !strings.Contains(err.Error(), "loop in mixins") {
		t.Fatalf("expected the fork's mixin loop on the calling goroutine, got %v", err)
	}
}

func TestSummarize(t *testing.T) {
	res, err := Resolve(context.Background(), []Input{{Path: "shapes.toml", Content: []byte(shapes)}}, Options{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	sums := Summarize(res.State)
	var names []string
	for _, s := range sums {
		names = append(names, s.Name)
	}
	if !slices.Equal(names, []string{"Base", "Greeting", "Derived"}) {
		t.Fatalf("summarized classes = %v", names)
	}
	derived := sums[2]
	if derived.Kind != "class" || derived.SuperClass != "Base" {
		t.Fatalf("derived = %+v", derived)
	}
	gi, bi := slices.Index(derived.Ancestors, "Greeting"), slices.Index(derived.Ancestors, "Base")
	if gi < 0 || bi < 0 || gi > bi || !slices.Contains(derived.Ancestors, "Object") {
		t.Fatalf("ancestors = %v", derived.Ancestors)
	}
	if len(derived.TypeMembers) != 1 || derived.TypeMembers[0].Name != "Elem" || !derived.TypeMembers[0].Fixed {
		t.Fatalf("synthesized type member missing: %+v", derived.TypeMembers)
	}
	if sums[1].Kind != "module" {
		t.Fatalf("Greeting kind = %s", sums[1].Kind)
	}
}

func TestFindAndLoadConfig(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	cfgPath := filepath.Join(root, ConfigFileName)
	content := `
[diagnostics]
max = 5
format = "json"

[resolve]
preallocate_names = 2048
stdlib_payload = ["lib/core.toml"]
`
	if err := os.WriteFile(cfgPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, path, err := DiscoverConfig(nested)
	if err != nil {
		t.Fatalf("DiscoverConfig: %v", err)
	}
	if path != cfgPath {
		t.Fatalf("found %q, want %q", path, cfgPath)
	}
	if cfg.Diagnostics.Max != 5 || cfg.Diagnostics.Format != "json" {
		t.Fatalf("diagnostics = %+v", cfg.Diagnostics)
	}
	if cfg.Trace.Level != "off" || cfg.Trace.Mode != "ring" {
		t.Fatalf("defaults lost: %+v", cfg.Trace)
	}
	if want := filepath.Join(root, "lib", "core.toml"); len(cfg.Resolve.StdlibPayload) != 1 || cfg.Resolve.StdlibPayload[0] != want {
		t.Fatalf("payload = %v, want %s", cfg.Resolve.StdlibPayload, want)
	}
	if opts := OptionsFromConfig(cfg); opts.MaxDiagnostics != 5 || opts.PreallocateNames != 2048 {
		t.Fatalf("options = %+v", opts)
	}
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"unknown key":  "[diagnostics]\ncolour = true\n",
		"bad format":   "[diagnostics]\nformat = \"xml\"\n",
		"bad level":    "[trace]\nlevel = \"loud\"\n",
		"bad mode":     "[trace]\nmode = \"tape\"\n",
		"negative max": "[diagnostics]\nmax = -1\n",
		"syntax":       "[diagnostics\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			p := filepath.Join(t.TempDir(), ConfigFileName)
			if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
				t.Fatalf("write: %v", err)
			}
			if _, err := LoadConfig(p); err == nil || !strings.Contains(err.Error(), p) {
				t.Fatalf("expected error naming %s, got %v", p, err)
			}
		})
	}
}

func TestDiscoverConfigDefaults(t *testing.T) {
	cfg, path, err := DiscoverConfig(t.TempDir())
	if err != nil {
		t.Fatalf("DiscoverConfig: %v", err)
	}
	// a sigil.toml above the temp dir would be picked up; only check the
	// defaults when none was found
	if path == "" && cfg.Diagnostics.Max != DefaultConfig().Diagnostics.Max {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}
