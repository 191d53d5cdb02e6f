// Package resolver finalizes the class hierarchy held by a symbols.State.
//
// It runs three phases, each exactly once per compilation and in order:
//
//   - FinalizeAncestors decides module-ness and default superclasses,
//     including the superclass chain of singleton classes.
//   - ComputeLinearization turns every declared mixin list into the final
//     ordered ancestor list (the method resolution order minus the
//     superclass chain).
//   - FinalizeSymbols propagates class-methods modules to singletons,
//     linearizes, and aligns every class's type members with those of its
//     ancestors.
//
// User errors are reported through diag.Reporter and never stop a phase: a
// substitute (placeholder type member, reordered list) is synthesized so
// later phases see complete data. Broken invariants such as mixin cycles
// panic through package fatal.
//
// The symbol and name tables must be unfrozen while these phases run since
// singleton classes and placeholder type members may be entered.
package resolver
