package ecs

import (
	"reflect"
	"unsafe"
)

// singletonEntry holds the single live instance of a context type.
type singletonEntry struct {
	typ     reflect.Type
	dataPtr unsafe.Pointer
}

// storeSingleton writes v (of type t) into the context store. An existing
// instance is overwritten in place so pointers handed out earlier stay valid.
func (s *Storage) storeSingleton(t reflect.Type, v reflect.Value) *singletonEntry {
	entry := s.singletons[t]
	if entry == nil {
		ptr := reflect.New(t)
		entry = &singletonEntry{typ: t, dataPtr: ptr.UnsafePointer()}
		s.singletons[t] = entry
		s.singletonOrder = append(s.singletonOrder, t)
	}
	reflect.NewAt(t, entry.dataPtr).Elem().Set(v)
	return entry
}

func (s *Storage) getSingletonEntry(t reflect.Type) *singletonEntry {
	return s.singletons[t]
}

// AddSingleton stores a context value (or the value behind a pointer).
// A second call for the same type overwrites the first.
func (s *Storage) AddSingleton(value any) {
	v := reflect.ValueOf(value)
	if !v.IsValid() {
		panic("cannot add a nil singleton")
	}
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	s.storeSingleton(v.Type(), v)
}

// ReadSingleton points target (a **T) at the stored context of type T.
// Returns false if the context was never set.
func (s *Storage) ReadSingleton(target any) bool {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Ptr {
		panic("ReadSingleton target must be a pointer to a pointer")
	}
	t := rv.Elem().Type().Elem()
	entry := s.getSingletonEntry(t)
	if entry == nil {
		return false
	}
	rv.Elem().Set(reflect.NewAt(t, entry.dataPtr))
	return true
}

// SetContext stores value as the single live instance of T and returns a
// pointer to the stored copy. Interface types are allowed for T.
func SetContext[T any](s *Storage, value T) *T {
	t := reflect.TypeFor[T]()
	entry := s.storeSingleton(t, reflect.ValueOf(&value).Elem())
	return (*T)(entry.dataPtr)
}

// Context returns the stored instance of T, or a ContextNotFoundError if it
// was never set. Contexts are never created implicitly.
func Context[T any](s *Storage) (*T, error) {
	t := reflect.TypeFor[T]()
	entry := s.getSingletonEntry(t)
	if entry == nil {
		return nil, &ContextNotFoundError{Type: t}
	}
	return (*T)(entry.dataPtr), nil
}

// Singleton provides efficient access to a single component instance
// that is not associated with any entity. Use this for global game state,
// configuration, or other singleton data. Declaring one as a system field
// makes the dependency visible; the Scheduler initializes it on Register.
type Singleton[T any] struct {
	storage       *Storage
	componentPtr  unsafe.Pointer
	componentType reflect.Type
}

// NewSingleton creates a new Singleton accessor for the given storage.
// If initializer is provided and the singleton doesn't exist in storage,
// it will be created with the initializer value. Otherwise, a zero value is used.
// This guarantees the singleton exists in storage after the call.
func NewSingleton[T any](storage *Storage, initializer ...T) *Singleton[T] {
	componentType := reflect.TypeFor[T]()

	// Check if singleton already exists
	entry := storage.getSingletonEntry(componentType)
	if entry == nil {
		// Create the singleton with initializer or zero value
		var value T
		if len(initializer) > 0 {
			value = initializer[0]
		}
		entry = storage.storeSingleton(componentType, reflect.ValueOf(&value).Elem())
	}

	return &Singleton[T]{
		storage:       storage,
		componentPtr:  entry.dataPtr,
		componentType: componentType,
	}
}

// Init initializes the Singleton with a storage reference.
// This is called automatically by the Scheduler during system registration.
func (s *Singleton[T]) Init(storage *Storage) {
	s.storage = storage
	s.componentType = reflect.TypeFor[T]()
	s.updateCache()
}

// Get returns a pointer to the singleton component.
// Returns nil if the singleton has not been added to storage.
func (s *Singleton[T]) Get() *T {
	if s.componentPtr == nil {
		s.updateCache()
	}
	if s.componentPtr == nil {
		return nil
	}
	return (*T)(s.componentPtr)
}

// Lookup is Get with a ContextNotFoundError instead of nil.
func (s *Singleton[T]) Lookup() (*T, error) {
	if ptr := s.Get(); ptr != nil {
		return ptr, nil
	}
	return nil, &ContextNotFoundError{Type: reflect.TypeFor[T]()}
}

// updateCache refreshes the cached pointer from storage
func (s *Singleton[T]) updateCache() {
	if s.storage == nil {
		return
	}
	entry := s.storage.getSingletonEntry(s.componentType)
	if entry != nil {
		s.componentPtr = entry.dataPtr
	} else {
		s.componentPtr = nil
	}
}

// Exists returns true if the singleton component has been added to storage
func (s *Singleton[T]) Exists() bool {
	if s.componentPtr == nil {
		s.updateCache()
	}
	return s.componentPtr != nil
}
