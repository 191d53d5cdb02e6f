package symbols

import "sigil/internal/types"

// IntrinsicID selects a synthesized method implementation.
type IntrinsicID uint8

const (
	NoIntrinsic IntrinsicID = iota
	IntrinsicBuildHash
	IntrinsicBuildArray
)

// IntrinsicFunc computes the result type of a call from its argument types.
type IntrinsicFunc func(s *State, args []types.TypeID) types.TypeID

var intrinsics = [...]IntrinsicFunc{
	NoIntrinsic:         nil,
	IntrinsicBuildHash:  buildHash,
	IntrinsicBuildArray: buildArray,
}

// CallIntrinsic applies the intrinsic of method to args. ok is false when
// the method has none.
func (s *State) CallIntrinsic(method Ref, args []types.TypeID) (result types.TypeID, ok bool) {
	id := s.Data(method).Intrinsic
	if id == NoIntrinsic || int(id) >= len(intrinsics) {
		return types.NoTypeID, false
	}
	return intrinsics[id](s, args), true
}

// buildHash types {k1 => v1, ...}. K and V collapse to T.untyped unless
// every key (value) has the same type.
func buildHash(s *State, args []types.TypeID) types.TypeID {
	var keys, values []types.TypeID
	for i, a := range args {
		if i%2 == 0 {
			keys = append(keys, a)
		} else {
			values = append(values, a)
		}
	}
	// Hash declares K, V and the Elem it re-declares for Enumerable
	return s.types.Applied(Hash.Raw(), []types.TypeID{
		s.commonType(keys), s.commonType(values), s.types.Builtins().Untyped,
	})
}

// buildArray types [e1, ...] as Array[E].
func buildArray(s *State, args []types.TypeID) types.TypeID {
	return s.types.Applied(Array.Raw(), []types.TypeID{s.commonType(args)})
}

func (s *State) commonType(ts []types.TypeID) types.TypeID {
	untyped := s.types.Builtins().Untyped
	if len(ts) == 0 {
		return untyped
	}
	for _, t := range ts[1:] {
		if t != ts[0] {
			return untyped
		}
	}
	return ts[0]
}
