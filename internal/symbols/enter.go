package symbols

import (
	"slices"

	"sigil/internal/fatal"
	"sigil/internal/names"
	"sigil/internal/source"
	"sigil/internal/types"
)

// enter is the shared body of every Enter* call: a hit in the owner's member
// table with compatible flags returns the existing symbol, anything else
// appends a new record. Returns true when a record was created.
func (s *State) enter(kind Kind, flags Flags, loc source.Span, owner Ref, name names.NameRef) (Ref, bool) {
	if existing, ok := s.Data(owner).Members[name]; ok && existing.Exists() {
		have := s.Data(existing).Flags
		fatal.Check(have&flags == flags, "existing symbol %s has wrong flags: have %v, want %v",
			s.ShowFull(existing), have.Strings(), flags.Strings())
		return existing, false
	}
	fatal.Check(!s.symbolsFrozen, "symbol table is frozen; cannot enter %s %q in %s",
		kind, s.names.Show(name), s.ShowFull(owner))

	ref := s.arenas[kind].add(Symbol{Owner: owner, Name: name, Flags: flags})
	s.Data(ref).AddLoc(loc)
	s.setMember(owner, name, ref)
	s.wasModified = true
	return ref, true
}

func (s *State) setMember(owner Ref, name names.NameRef, ref Ref) {
	data := s.Data(owner)
	if data.Members == nil {
		data.Members = make(map[names.NameRef]Ref)
	}
	data.Members[name] = ref
}

func (s *State) checkClassOwner(owner Ref, what string) {
	fatal.Check(owner.IsClassOrModule() && s.Data(owner).IsClassOrModule(),
		"entering %s into not-a-class %v", what, owner)
}

// IsClassName reports whether name may name a class or module.
func (s *State) IsClassName(name names.NameRef) bool {
	if !name.Exists() {
		return false
	}
	n := s.names.Data(name)
	switch n.Kind {
	case names.KindConstant:
		return true
	case names.KindUnique:
		switch n.Unique {
		case names.Singleton, names.MangleRename, names.ResolverMissingClass:
			return true
		}
	}
	return false
}

// EnterClass enters a class or module named name into owner. owner may be
// NoSymbol for synthesized top-level classes.
func (s *State) EnterClass(loc source.Span, owner Ref, name names.NameRef) Ref {
	fatal.Check(owner.IsClassOrModule() && s.Data(owner).IsClassOrModule(), "class owner %v is not a class", owner)
	fatal.Check(s.IsClassName(name), "%s is not a class name", s.names.ShowRaw(name))
	ref, _ := s.enter(KindClassOrModule, FlagClassOrModule, loc, owner, name)
	return ref
}

// EnterMethod enters a method named name into owner.
func (s *State) EnterMethod(loc source.Span, owner Ref, name names.NameRef) Ref {
	s.checkClassOwner(owner, "method")
	fatal.Check(name.Exists(), "entering method with no name")
	ref, _ := s.enter(KindMethod, FlagMethod, loc, owner, name)
	return ref
}

// EnterField enters an instance field.
func (s *State) EnterField(loc source.Span, owner Ref, name names.NameRef) Ref {
	s.checkClassOwner(owner, "field")
	fatal.Check(name.Exists(), "entering field with no name")
	ref, _ := s.enter(KindField, FlagField, loc, owner, name)
	return ref
}

// EnterStaticField enters a class-level constant or static field. Static
// fields live in the field arena.
func (s *State) EnterStaticField(loc source.Span, owner Ref, name names.NameRef) Ref {
	s.checkClassOwner(owner, "static field")
	fatal.Check(name.Exists(), "entering static field with no name")
	ref, _ := s.enter(KindField, FlagStaticField, loc, owner, name)
	return ref
}

// EnterTypeMember enters a generic parameter of a class or module. New
// members are appended to the owner's TypeMembers and start with
// (bottom, top) bounds.
func (s *State) EnterTypeMember(loc source.Span, owner Ref, name names.NameRef, variance Variance) Ref {
	s.checkClassOwner(owner, "type member")
	fatal.Check(name.Exists(), "entering type member with no name")
	ref, created := s.enter(KindTypeMember, FlagTypeMember|variance.Flag(), loc, owner, name)
	if created {
		b := s.types.Builtins()
		s.Data(ref).ResultType = s.types.Intern(types.MakeLambdaParam(ref.Raw(), b.Bottom, b.Top))
		od := s.Data(owner)
		if !slices.Contains(od.TypeMembers, ref) {
			od.TypeMembers = append(od.TypeMembers, ref)
		}
	}
	return ref
}

// EnterTypeArgument enters a generic parameter of a method.
func (s *State) EnterTypeArgument(loc source.Span, owner Ref, name names.NameRef, variance Variance) Ref {
	fatal.Check(owner.Exists() && owner.IsMethod(), "type argument owner %v is not a method", owner)
	fatal.Check(name.Exists(), "entering type argument with no name")
	ref, created := s.enter(KindTypeArgument, FlagTypeArgument|variance.Flag(), loc, owner, name)
	if created {
		b := s.types.Builtins()
		s.Data(ref).ResultType = s.types.Intern(types.MakeLambdaParam(ref.Raw(), b.Bottom, b.Top))
		od := s.Data(owner)
		od.TypeArguments = append(od.TypeArguments, ref)
	}
	return ref
}

// EnterMethodArgument returns the argument of method named name, appending
// it if missing. The pointer is valid until the next argument is entered.
func (s *State) EnterMethodArgument(loc source.Span, method Ref, name names.NameRef) *ArgInfo {
	fatal.Check(method.Exists() && method.IsMethod(), "entering argument into not-a-method %v", method)
	fatal.Check(name.Exists(), "entering argument with no name")
	md := s.Data(method)
	for i := range md.Arguments {
		if md.Arguments[i].Name == name {
			return &md.Arguments[i]
		}
	}
	fatal.Check(!s.symbolsFrozen, "symbol table is frozen; cannot add argument %q to %s",
		s.names.Show(name), s.ShowFull(method))
	md.Arguments = append(md.Arguments, ArgInfo{Name: name, Loc: loc, Type: s.types.Builtins().Untyped})
	s.wasModified = true
	return &md.Arguments[len(md.Arguments)-1]
}

// EnterNewMethodOverload enters overload num of original. Overload 0 reuses
// originalName and the original location. Only the arguments listed in
// argsToKeep are copied; the block argument is always kept.
func (s *State) EnterNewMethodOverload(sigLoc source.Span, original Ref, originalName names.NameRef, num uint32, argsToKeep []int) Ref {
	name := originalName
	loc := sigLoc
	if num == 0 {
		loc = s.Data(original).Loc()
	} else {
		name = s.FreshNameUnique(names.Overload, originalName, num)
	}
	res := s.EnterMethod(loc, s.Data(original).Owner, name)
	fatal.Check(res != original, "overload %d of %s resolved to itself", num, s.ShowFull(original))

	origArgs := s.Data(original).Arguments
	if len(s.Data(res).Arguments) == len(origArgs) {
		return res
	}
	fatal.Check(len(s.Data(res).Arguments) == 0, "overload %s already has arguments", s.ShowFull(res))
	for i, arg := range origArgs {
		argLoc := arg.Loc
		if !slices.Contains(argsToKeep, i) {
			if !arg.IsBlock() {
				continue
			}
			argLoc = source.NoSpan
		}
		fresh := s.EnterMethodArgument(argLoc, res, arg.Name)
		*fresh = arg
		fresh.Loc = argLoc
	}
	return res
}

// FreshNameUnique interns a unique name. num must be >= 1.
func (s *State) FreshNameUnique(kind names.UniqueKind, original names.NameRef, num uint32) names.NameRef {
	return s.names.EnterUnique(kind, original, num)
}

// MangleRenameSymbol moves what out of the way under original$N so its
// name can be reused. A class's singleton is renamed along with it.
func (s *State) MangleRenameSymbol(what Ref, origName names.NameRef) {
	wd := s.Data(what)
	owner := wd.Owner
	od := s.Data(owner)
	found, ok := od.Members[origName]
	fatal.Check(ok && found == what, "%s is not the member %q of its owner", s.ShowFull(what), s.names.Show(origName))
	fatal.Check(wd.Name == origName, "%s is not named %q", s.ShowFull(what), s.names.Show(origName))

	var name names.NameRef
	for n := uint32(1); ; n++ {
		name = s.FreshNameUnique(names.MangleRename, origName, n)
		if !s.FindMember(owner, name).Exists() {
			break
		}
	}
	od = s.Data(owner)
	delete(od.Members, origName)
	od.Members[name] = what
	s.Data(what).Name = name
	if what.IsClassOrModule() {
		if singleton := s.LookupSingletonClass(what); singleton.Exists() {
			s.MangleRenameSymbol(singleton, s.Data(singleton).Name)
		}
	}
	s.wasModified = true
}

// SingletonClass returns the singleton class of klass, creating it with
// its <AttachedClass> type member when missing.
func (s *State) SingletonClass(klass Ref) Ref {
	if singleton := s.LookupSingletonClass(klass); singleton.Exists() {
		return singleton
	}
	kd := s.Data(klass)
	fatal.Check(kd.IsClassOrModule(), "%v has no singleton class", klass)
	loc, owner := kd.Loc(), kd.Owner
	name := s.FreshNameUnique(names.Singleton, kd.Name, 1)

	singleton := s.EnterClass(loc, owner, name)
	sd := s.Data(singleton)
	sd.SuperClass = Todo
	sd.SetIsModule(false)
	s.setMember(singleton, names.Attached, klass)
	s.setMember(klass, names.SingletonLink, singleton)

	tp := s.EnterTypeMember(loc, singleton, names.AttachedClass, Covariant)
	s.Data(tp).SetFixed()
	return singleton
}

// LookupSingletonClass returns the singleton of klass or NoSymbol.
func (s *State) LookupSingletonClass(klass Ref) Ref {
	return s.FindMember(klass, names.SingletonLink)
}

// AttachedClass returns the class a singleton belongs to, or NoSymbol.
func (s *State) AttachedClass(singleton Ref) Ref {
	return s.FindMember(singleton, names.Attached)
}

// IsSingletonClass reports whether ref is a singleton class.
func (s *State) IsSingletonClass(ref Ref) bool {
	return s.AttachedClass(ref).Exists()
}

// SetClassMethods records module as the class-methods module of owner.
// Every class that mixes owner in gets module mixed into its singleton.
func (s *State) SetClassMethods(owner, module Ref) {
	s.checkClassOwner(owner, "class methods")
	fatal.Check(module.IsClassOrModule() && module.Exists(), "class methods target %v is not a module", module)
	if s.FindMember(owner, names.ClassMethods) == module {
		return
	}
	fatal.Check(!s.symbolsFrozen, "symbol table is frozen; cannot set class methods of %s", s.ShowFull(owner))
	s.setMember(owner, names.ClassMethods, module)
	s.wasModified = true
}

// AddMixin appends mixin to the declared mixins of klass. Once klass is
// linearized only mixins it already derives from are accepted.
func (s *State) AddMixin(klass, mixin Ref) {
	kd := s.Data(klass)
	fatal.Check(kd.IsClassOrModule(), "adding mixin to not-a-class %v", klass)
	if slices.Contains(kd.Mixins, mixin) {
		return
	}
	if kd.IsLinearized() {
		fatal.Check(s.DerivesFrom(klass, mixin), "cannot add mixin %s to linearized %s",
			s.ShowFull(mixin), s.ShowFull(klass))
		return
	}
	kd.Mixins = append(kd.Mixins, mixin)
	s.wasModified = true
}

// StaticInitForClass returns the <static-init> method on the singleton of
// klass, creating it with its block argument.
func (s *State) StaticInitForClass(klass Ref, loc source.Span) Ref {
	before := s.MethodsUsed()
	sym := s.EnterMethod(loc, s.SingletonClass(klass), names.StaticInit)
	if before != s.MethodsUsed() {
		blk := s.EnterMethodArgument(source.Span{File: loc.File}, sym, names.BlkArg)
		blk.Flags |= ArgBlock
	}
	return sym
}

// LookupStaticInitForClass returns the existing <static-init> of klass.
func (s *State) LookupStaticInitForClass(klass Ref) Ref {
	fatal.Check(s.Data(klass).IsClassOrModule(), "%v is not a class", klass)
	ref := s.FindMember(s.LookupSingletonClass(klass), names.StaticInit)
	fatal.Check(ref.Exists(), "looking up non-existent <static-init> for %s", s.ShowFull(klass))
	return ref
}

// StaticInitForFile returns the per-file <static-init> method on the root
// singleton, creating it when missing.
func (s *State) StaticInitForFile(loc source.Span) Ref {
	nm := s.FreshNameUnique(names.Namer, names.StaticInit, uint32(loc.File))
	before := s.MethodsUsed()
	sym := s.EnterMethod(loc, RootSingleton, nm)
	if before != s.MethodsUsed() {
		blk := s.EnterMethodArgument(source.Span{File: loc.File}, sym, names.BlkArg)
		blk.Flags |= ArgBlock
	}
	return sym
}

// LookupStaticInitForFile returns the existing per-file <static-init>.
func (s *State) LookupStaticInitForFile(file source.FileID) Ref {
	nm := s.names.LookupUnique(names.Namer, names.StaticInit, uint32(file))
	ref := s.FindMember(RootSingleton, nm)
	fatal.Check(ref.Exists(), "looking up non-existent <static-init> for file %d", file)
	return ref
}
