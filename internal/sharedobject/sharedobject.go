// Package sharedobject provides a process-wide singleton handle, the
// Go analogue of the Postgres extension's shared-memory SharedObject<T>
// (original_source/src/shmem.rs): attach exactly once, fatal on a
// second attach, fatal Get before attach. Every goroutine in this
// process already shares one heap, so there is no segment to map; the
// discipline being preserved is the *lifecycle contract*, not the
// memory-mapping mechanism. See SPEC_FULL.md, ADAPTATIONS #2.
package sharedobject

import (
	"fmt"
	"sync/atomic"
)

// Object is a typed, once-initialized, process-wide handle to a value
// of type T. The zero value is usable; Attach must run before Get.
type Object[T any] struct {
	name string
	ptr  atomic.Pointer[T]
}

// New names a shared object. Each name must be globally unique within
// the process, mirroring the original's "globally unique segment name"
// requirement.
func New[T any](name string) *Object[T] {
	return &Object[T]{name: name}
}

// Attach installs value as the contents of this shared object. It may
// be called exactly once; a second call is a fatal configuration error,
// matching the original's "segment already exists at first attach".
func (o *Object[T]) Attach(value *T) {
	if !o.ptr.CompareAndSwap(nil, value) {
		panic(fmt.Sprintf("sharedobject: %q has already been initialized", o.name))
	}
}

// Get returns the attached value. It panics if called before Attach,
// matching the original's "fails fatally if called before attach".
func (o *Object[T]) Get() *T {
	v := o.ptr.Load()
	if v == nil {
		panic(fmt.Sprintf("sharedobject: %q has not been initialized", o.name))
	}
	return v
}

// Ready reports whether Attach has run, without panicking.
func (o *Object[T]) Ready() bool {
	return o.ptr.Load() != nil
}
