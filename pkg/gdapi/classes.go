package gdapi

import (
	"sync"
)

// Built-in class names.
const (
	ClassResource   = "resource"
	ClassCollection = "collection"
	ClassError      = "error"
)

// Factory constructs a value class from the producing client's identity and
// the object's fields.
type Factory func(clientID string, fields map[string]any) Value

var (
	classMu sync.RWMutex
	classes = map[string]Factory{
		ClassResource: func(clientID string, fields map[string]any) Value {
			return NewResource(clientID, fields)
		},
		ClassCollection: func(clientID string, fields map[string]any) Value {
			return NewCollection(clientID, fields)
		},
		ClassError: func(clientID string, fields map[string]any) Value {
			return NewErrorValue(clientID, fields)
		},
	}
)

// RegisterClass makes a value class available to classmaps and to
// discriminators that name it directly. Register at startup, before clients
// are constructed.
func RegisterClass(name string, factory Factory) error {
	if name == "" {
		return ErrClassNameRequired
	}

	if factory == nil {
		return ErrNilFactory
	}

	classMu.Lock()
	defer classMu.Unlock()

	classes[name] = factory

	return nil
}

// LookupClass returns the factory registered under name.
func LookupClass(name string) (Factory, bool) {
	classMu.RLock()
	defer classMu.RUnlock()

	factory, ok := classes[name]

	return factory, ok
}

// ClassNames lists the registered classes in sorted order.
func ClassNames() []string {
	classMu.RLock()
	defer classMu.RUnlock()

	return SortedKeys(classes)
}
