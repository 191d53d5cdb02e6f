package hierarchy

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"sigil/internal/diag"
	"sigil/internal/names"
	"sigil/internal/source"
	"sigil/internal/symbols"
	"sigil/internal/trace"
)

// Options control how a document is entered.
type Options struct {
	Format   Format
	FileType source.FileType // FileNormal for user code, FilePayload for built-in definitions
}

// Result describes what one document added to the state.
type Result struct {
	File    source.FileID
	Classes []symbols.Ref // one per declaration, NoSymbol when rejected
	Stubs   []symbols.Ref // placeholders for unresolved constants
}

// Load reads path and enters its declarations into s.
func Load(ctx context.Context, s *symbols.State, path string, rep diag.Reporter) (Result, error) {
	// #nosec G304 -- path is provided by the caller
	content, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read hierarchy: %w", err)
	}
	format, err := DetectFormat(path)
	if err != nil {
		return Result{}, err
	}
	return LoadBytes(ctx, s, path, content, Options{Format: format}, rep)
}

// LoadBytes enters the declarations of an in-memory document. Syntax errors
// are returned before the state is touched; semantic problems become LDR
// diagnostics and never abort the load.
func LoadBytes(ctx context.Context, s *symbols.State, path string, content []byte, opts Options, rep diag.Reporter) (Result, error) {
	span := trace.Begin(trace.FromContext(ctx), trace.ScopePass, "hierarchy.load", 0).WithExtra("path", path)
	defer span.End("")

	format := opts.Format
	if format == FormatAuto {
		var err error
		if format, err = DetectFormat(path); err != nil {
			return Result{}, err
		}
	}
	doc, err := Parse(content, format)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", path, err)
	}
	if s.FindFileByPath(path) != source.NoFileID {
		return Result{}, fmt.Errorf("%s: already loaded", path)
	}
	if rep == nil {
		rep = diag.NopReporter{}
	}

	restore := s.Unfreeze(symbols.AllTables)
	defer restore()

	file := s.EnterFile(path, content, opts.FileType)
	ld := &loader{s: s, rep: rep, loc: newLocator(content, file), doc: doc}
	ld.run()
	span.WithExtra("classes", strconv.Itoa(len(doc.Classes))).WithExtra("stubs", strconv.Itoa(len(ld.stubs)))
	return Result{File: file, Classes: ld.classes, Stubs: ld.stubs}, nil
}

type loader struct {
	s       *symbols.State
	rep     diag.Reporter
	loc     *locator
	doc     *Document
	regions []region
	classes []symbols.Ref
	stubs   []symbols.Ref
}

func (ld *loader) run() {
	var nameSpans []source.Span
	ld.regions, nameSpans = ld.loc.classRegions(ld.doc)
	ld.classes = make([]symbols.Ref, len(ld.doc.Classes))

	// declare every class first so references may point forward
	for i := range ld.doc.Classes {
		ld.classes[i] = ld.declare(&ld.doc.Classes[i], nameSpans[i])
	}
	for i := range ld.doc.Classes {
		if ld.classes[i].Exists() {
			ld.define(&ld.doc.Classes[i], ld.classes[i], ld.regions[i])
		}
	}
}

func normalize(s string) string { return norm.NFC.String(strings.TrimSpace(s)) }

// splitPath splits A::B::C into its constant segments.
func splitPath(path string) ([]string, bool) {
	segs := strings.Split(normalize(path), "::")
	for i, seg := range segs {
		seg = strings.TrimSpace(seg)
		if seg == "" || !isConstantName(seg) {
			return nil, false
		}
		segs[i] = seg
	}
	return segs, true
}

// isConstantName accepts names whose first rune is an upper-case letter.
func isConstantName(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsUpper(r)
}

func (ld *loader) invalid(sp source.Span, format string, args ...any) {
	diag.ReportError(ld.rep, diag.LdrInvalidDeclaration, sp, fmt.Sprintf(format, args...)).Emit()
}

// declare enters the class named by c and decides its kind.
func (ld *loader) declare(c *ClassDecl, sp source.Span) symbols.Ref {
	s := ld.s
	segs, ok := splitPath(c.Name)
	if !ok {
		ld.invalid(sp, "Invalid class name %q", c.Name)
		return symbols.NoSymbol
	}
	ref, ok := ld.ensurePath(symbols.Root, segs, sp)
	if !ok {
		return symbols.NoSymbol
	}

	wantModule, decided := false, true
	switch strings.ToLower(strings.TrimSpace(c.Kind)) {
	case "class":
	case "module":
		wantModule = true
	case "":
		decided = c.SuperClass != ""
	default:
		ld.invalid(sp, "Unknown kind %q for %s, want class or module", c.Kind, c.Name)
		decided = false
	}
	if decided {
		data := s.Data(ref)
		if data.IsClassModuleSet() && data.IsModule() != wantModule {
			diag.ReportError(ld.rep, diag.LdrDuplicateDeclaration, sp,
				fmt.Sprintf("%s was previously declared as a %s", s.ShowFull(ref), kindWord(data.IsModule()))).
				WithNote(data.Loc(), "previous declaration").
				Emit()
		} else {
			data.SetIsModule(wantModule)
		}
	}

	data := s.Data(ref)
	for _, f := range []struct {
		on   bool
		flag symbols.Flags
	}{{c.Abstract, symbols.FlagAbstract}, {c.Interface, symbols.FlagInterface}, {c.Sealed, symbols.FlagSealed}, {c.Final, symbols.FlagFinal}} {
		if f.on {
			data.Flags |= f.flag
		}
	}
	return ref
}

func kindWord(module bool) string {
	if module {
		return "module"
	}
	return "class"
}

// ensurePath walks segs from owner, entering missing classes. Intermediate
// segments are left undecided.
func (ld *loader) ensurePath(owner symbols.Ref, segs []string, sp source.Span) (symbols.Ref, bool) {
	s := ld.s
	cur := owner
	for _, seg := range segs {
		name := s.Names().EnterConstantText(seg)
		if existing := s.FindMember(cur, name); existing.Exists() && !existing.IsClassOrModule() {
			diag.ReportError(ld.rep, diag.LdrDuplicateDeclaration, sp,
				fmt.Sprintf("%s is already defined as a %s", s.ShowFull(existing), existing.Kind())).
				WithNote(s.Data(existing).Loc(), "previous definition").
				Emit()
			return symbols.NoSymbol, false
		}
		cur = s.EnterClass(sp, cur, name)
	}
	s.Data(cur).AddLoc(sp)
	return cur, true
}

// resolve looks path up from the lexical scope of sym outwards.
func (ld *loader) resolve(sym symbols.Ref, segs []string) symbols.Ref {
	s := ld.s
	for scope := s.Data(sym).Owner; scope.Exists(); scope = s.Data(scope).Owner {
		if found := s.LookupClassPath(scope, segs); found.Exists() {
			return found
		}
		if scope == symbols.Root {
			break
		}
	}
	return s.LookupClassPath(symbols.Root, segs)
}

// resolveOrStub resolves path or enters a stub under Root whose superclass
// marks it as unresolved.
func (ld *loader) resolveOrStub(sym symbols.Ref, path string, sp source.Span, stubSuper symbols.Ref) symbols.Ref {
	segs, ok := splitPath(path)
	if !ok {
		ld.invalid(sp, "Invalid constant %q", path)
		return symbols.NoSymbol
	}
	if found := ld.resolve(sym, segs); found.Exists() {
		return found
	}
	diag.ReportError(ld.rep, diag.LdrUnresolvedConstant, sp, "Unable to resolve constant "+strings.Join(segs, "::")).Emit()

	stub, ok := ld.ensurePath(symbols.Root, segs, sp)
	if !ok {
		return symbols.NoSymbol
	}
	data := ld.s.Data(stub)
	data.SetIsModule(stubSuper == symbols.StubModule)
	data.SuperClass = stubSuper
	ld.stubs = append(ld.stubs, stub)
	return stub
}

func (ld *loader) define(c *ClassDecl, ref symbols.Ref, r region) {
	ld.defineSuperClass(c, ref, r)
	ld.defineMixins(c, ref, r)
	ld.defineClassMethods(c, ref, r)
	for i := range c.TypeMembers {
		ld.defineTypeMember(&c.TypeMembers[i], ref, r)
	}
	for i := range c.Methods {
		ld.defineMethod(&c.Methods[i], ref, r)
	}
	for i := range c.Fields {
		ld.defineField(&c.Fields[i], ref, r)
	}
}

func (ld *loader) defineSuperClass(c *ClassDecl, ref symbols.Ref, r region) {
	if c.SuperClass == "" {
		return
	}
	s := ld.s
	sp, _ := ld.loc.keyed("superclass", c.SuperClass, r.start, r.end)
	if s.Data(ref).IsModule() {
		ld.invalid(sp, "Module %s cannot have a superclass", s.ShowFull(ref))
		return
	}
	super := ld.resolveOrStub(ref, c.SuperClass, sp, symbols.StubSuperClass)
	if !super.Exists() {
		return
	}
	if sd := s.Data(super); sd.IsClassModuleSet() && sd.IsModule() {
		ld.invalid(sp, "Superclass %s of %s is a module", s.ShowFull(super), s.ShowFull(ref))
		return
	}
	data := s.Data(ref)
	if prev := data.SuperClass; prev.Exists() && prev != symbols.Todo && prev != super {
		diag.ReportError(ld.rep, diag.LdrDuplicateDeclaration, sp,
			fmt.Sprintf("Superclass mismatch for %s: %s was declared before", s.ShowFull(ref), s.ShowFull(prev))).
			WithNote(data.Loc(), "first declared here").
			Emit()
		return
	}
	data.SuperClass = super
}

func (ld *loader) defineMixins(c *ClassDecl, ref symbols.Ref, r region) {
	for _, m := range c.Mixins {
		sp, _ := ld.loc.token(m, r.start, r.end)
		mixin := ld.resolveOrStub(ref, m, sp, symbols.StubModule)
		if !mixin.Exists() {
			continue
		}
		if mixin == ref {
			ld.invalid(sp, "%s cannot include itself", ld.s.ShowFull(ref))
			continue
		}
		if ld.s.Data(ref).IsLinearized() && !ld.s.DerivesFrom(ref, mixin) {
			ld.invalid(sp, "Cannot add %s to %s after its ancestors were resolved", ld.s.ShowFull(mixin), ld.s.ShowFull(ref))
			continue
		}
		ld.s.AddMixin(ref, mixin)
	}
}

func (ld *loader) defineClassMethods(c *ClassDecl, ref symbols.Ref, r region) {
	if c.ClassMethods == "" {
		return
	}
	s := ld.s
	sp, _ := ld.loc.keyed("class_methods", c.ClassMethods, r.start, r.end)
	if !s.Data(ref).IsModule() {
		ld.invalid(sp, "Only modules can declare class methods; %s is a class", s.ShowFull(ref))
		return
	}
	module := ld.resolveOrStub(ref, c.ClassMethods, sp, symbols.StubModule)
	if module.Exists() {
		s.SetClassMethods(ref, module)
	}
}

func parseVariance(v string) (symbols.Variance, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "invariant":
		return symbols.Invariant, true
	case "covariant", "out", "+":
		return symbols.Covariant, true
	case "contravariant", "in", "-":
		return symbols.Contravariant, true
	}
	return symbols.Invariant, false
}

func (ld *loader) variance(p *TypeParamDecl, sp source.Span) symbols.Variance {
	v, ok := parseVariance(p.Variance)
	if !ok {
		vsp, found := ld.loc.keyed("variance", p.Variance, int(sp.End), int(sp.End)+256)
		if !found {
			vsp = sp
		}
		diag.ReportError(ld.rep, diag.LdrBadVariance, vsp,
			fmt.Sprintf("Unknown variance %q for %s, using invariant", p.Variance, p.Name)).
			WithFix("use invariant", diag.FixEdit{Span: vsp, NewText: "invariant"}).
			Emit()
	}
	return v
}

func (ld *loader) defineTypeMember(p *TypeParamDecl, owner symbols.Ref, r region) {
	s := ld.s
	sp, _ := ld.loc.keyed("name", p.Name, r.start, r.end)
	segs, ok := splitPath(p.Name)
	if !ok || len(segs) != 1 {
		ld.invalid(sp, "Invalid type member name %q", p.Name)
		return
	}
	v := ld.variance(p, sp)
	name := s.Names().EnterConstantText(segs[0])

	if existing := s.FindMember(owner, name); existing.Exists() {
		ed := s.Data(existing)
		if !existing.IsTypeMember() || ed.Variance() != v {
			diag.ReportError(ld.rep, diag.LdrDuplicateDeclaration, sp,
				fmt.Sprintf("%s conflicts with an earlier declaration", s.ShowFull(existing))).
				WithNote(ed.Loc(), "previous declaration").
				Emit()
			return
		}
	}
	tm := s.EnterTypeMember(sp, owner, name, v)
	if p.Fixed {
		s.Data(tm).SetFixed()
	}
}

type argKind struct {
	label string
	flags symbols.ArgFlags
}

var argKinds = []argKind{
	{"", 0},
	{"positional", 0},
	{"optional", symbols.ArgDefault},
	{"keyword", symbols.ArgKeyword},
	{"keyword_optional", symbols.ArgKeyword | symbols.ArgDefault},
	{"rest", symbols.ArgRepeated},
	{"kwrest", symbols.ArgKeyword | symbols.ArgRepeated},
	{"block", symbols.ArgBlock},
}

func parseArgKind(k string) (symbols.ArgFlags, bool) {
	k = strings.ToLower(strings.TrimSpace(k))
	i := slices.IndexFunc(argKinds, func(a argKind) bool { return a.label == k })
	if i < 0 {
		return 0, false
	}
	return argKinds[i].flags, true
}

func (ld *loader) defineMethod(m *MethodDecl, class symbols.Ref, r region) {
	s := ld.s
	sp, _ := ld.loc.keyed("name", m.Name, r.start, r.end)
	text := normalize(m.Name)
	if text == "" {
		ld.invalid(sp, "Method without a name in %s", s.ShowFull(class))
		return
	}
	if strings.HasPrefix(text, "@") {
		ld.invalid(sp, "Method name %q must not start with @", text)
		return
	}
	if names.IsReserved(text) {
		ld.invalid(sp, "Method name %q is reserved", text)
		return
	}

	type arg struct {
		name  names.NameRef
		flags symbols.ArgFlags
	}
	var args []arg
	for _, a := range m.Args {
		flags, ok := parseArgKind(a.Kind)
		if !ok || normalize(a.Name) == "" {
			ld.invalid(sp, "Invalid argument %q (%s) of %s", a.Name, a.Kind, text)
			continue
		}
		args = append(args, arg{s.Names().EnterPlain(normalize(a.Name)), flags})
	}

	owner := class
	if m.Self {
		owner = s.SingletonClass(class)
	}
	name := s.Names().EnterPlain(text)

	if existing := s.FindMember(owner, name); existing.Exists() {
		if !existing.IsMethod() {
			ld.invalid(sp, "%s is not a method", s.ShowFull(existing))
			return
		}
		prev := s.Data(existing).Arguments
		same := len(prev) == len(args)
		for i := 0; same && i < len(args); i++ {
			same = prev[i].Name == args[i].name && prev[i].Flags == args[i].flags
		}
		if !same {
			diag.ReportWarning(ld.rep, diag.LdrDuplicateDeclaration, sp,
				fmt.Sprintf("Method %s redefined with different arguments", s.ShowFull(existing))).
				WithNote(s.Data(existing).Loc(), "previous definition").
				Emit()
			s.MangleRenameSymbol(existing, name)
		}
	}

	method := s.EnterMethod(sp, owner, name)
	for _, a := range args {
		s.EnterMethodArgument(sp, method, a.name).Flags = a.flags
	}
	switch strings.ToLower(m.Visibility) {
	case "", "public":
	case "private":
		s.Data(method).Flags |= symbols.FlagPrivate
	case "protected":
		s.Data(method).Flags |= symbols.FlagProtected
	default:
		ld.invalid(sp, "Unknown visibility %q of %s", m.Visibility, text)
	}

	for i := range m.TypeArgs {
		p := &m.TypeArgs[i]
		segs, ok := splitPath(p.Name)
		if !ok || len(segs) != 1 {
			ld.invalid(sp, "Invalid type argument name %q", p.Name)
			continue
		}
		taName := s.Names().EnterConstantText(segs[0])
		v := ld.variance(p, sp)
		if existing := s.FindMember(method, taName); existing.Exists() && s.Data(existing).Variance() != v {
			diag.ReportError(ld.rep, diag.LdrDuplicateDeclaration, sp,
				fmt.Sprintf("Type argument %s redeclared with a different variance", s.ShowFull(existing))).Emit()
			continue
		}
		ta := s.EnterTypeArgument(sp, method, taName, v)
		if p.Fixed {
			s.Data(ta).SetFixed()
		}
	}
}

func (ld *loader) defineField(f *FieldDecl, class symbols.Ref, r region) {
	s := ld.s
	sp, _ := ld.loc.keyed("name", f.Name, r.start, r.end)
	text := normalize(f.Name)
	if !f.Static {
		if !strings.HasPrefix(text, "@") || len(text) < 2 {
			ld.invalid(sp, "Instance field %q must start with @", f.Name)
			return
		}
		name := s.Names().EnterPlain(text)
		if existing := s.FindMember(class, name); existing.Exists() && (!existing.IsField() || s.Data(existing).IsStaticField()) {
			diag.ReportError(ld.rep, diag.LdrDuplicateDeclaration, sp,
				fmt.Sprintf("%s is already defined", s.ShowFull(existing))).
				WithNote(s.Data(existing).Loc(), "previous definition").
				Emit()
			return
		}
		s.EnterField(sp, class, name)
		return
	}

	segs, ok := splitPath(text)
	if !ok || len(segs) != 1 {
		ld.invalid(sp, "Invalid constant name %q", f.Name)
		return
	}
	name := s.Names().EnterConstantText(segs[0])
	if existing := s.FindMember(class, name); existing.Exists() && !s.Data(existing).IsStaticField() {
		diag.ReportError(ld.rep, diag.LdrDuplicateDeclaration, sp,
			fmt.Sprintf("%s is already defined", s.ShowFull(existing))).
			WithNote(s.Data(existing).Loc(), "previous definition").
			Emit()
		return
	}
	s.EnterStaticField(sp, class, name)
}
