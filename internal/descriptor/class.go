package descriptor

import (
	"reflect"
)

// Class is the goroutine-safety classification of a view type.
type Class struct {
	Transferable bool
	Shareable    bool
}

// Common classifications.
var (
	ClassConfined     = Class{}
	ClassTransferable = Class{Transferable: true}
	ClassShareable    = Class{Transferable: true, Shareable: true}
)

// Permits reports whether a type whose ceiling is c may be declared as other.
func (c Class) Permits(other Class) bool {
	if other.Transferable && !c.Transferable {
		return false
	}
	if other.Shareable && !c.Shareable {
		return false
	}
	return true
}

func (c Class) String() string {
	switch {
	case c.Shareable && c.Transferable:
		return "transferable+shareable"
	case c.Shareable:
		return "shareable-only (invalid)"
	case c.Transferable:
		return "transferable"
	default:
		return "confined"
	}
}

// ThreadAffine marks handles that must stay on the goroutine (and OS
// thread) that created them, such as run loop or dispatch queue handles
// used under runtime.LockOSThread. A view holding one is never transferable.
type ThreadAffine interface {
	ThreadAffine()
}

var threadAffineType = reflect.TypeFor[ThreadAffine]()

// Audit returns the most permissive class the structure of t allows.
//
// Fields that implement ThreadAffine, and opaque fields (func, interface,
// unsafe.Pointer) that could hide one, make t confined. Maps and channels
// are unsynchronised shared state and make t transferable at most.
func Audit(t reflect.Type) Class {
	a := auditor{seen: make(map[reflect.Type]bool)}
	a.walk(t)
	return Class{
		Transferable: !a.affine,
		Shareable:    !a.affine && !a.mutable,
	}
}

type auditor struct {
	seen    map[reflect.Type]bool
	affine  bool
	mutable bool
}

func (a *auditor) walk(t reflect.Type) {
	if a.seen[t] {
		return
	}
	a.seen[t] = true

	if t.Implements(threadAffineType) || reflect.PointerTo(t).Implements(threadAffineType) {
		a.affine = true
		return
	}

	switch t.Kind() {
	case reflect.Func, reflect.Interface, reflect.UnsafePointer:
		a.affine = true
	case reflect.Map, reflect.Chan:
		a.mutable = true
	case reflect.Pointer, reflect.Slice, reflect.Array:
		a.walk(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			a.walk(t.Field(i).Type)
		}
	}
}
