// Package statekey builds and parses the composite keys that address
// ledger records in the world state.
//
// A composite key is a namespace followed by an ordered list of string
// attributes, joined with a reserved delimiter. The delimiter may not
// appear inside any component, which keeps encoding deterministic and
// parsing an exact inverse of building.
package statekey

import (
	"errors"
	"fmt"
	"strings"
)

// Delimiter separates the namespace and key attributes. It is reserved:
// no component may contain it.
const Delimiter = ":"

// ErrInvalidKeyComponent is returned when a key component is empty or
// contains the reserved delimiter.
var ErrInvalidKeyComponent = errors.New("statekey: invalid key component")

// Make builds the full composite key for the given namespace and ordered
// attributes. At least one attribute is required.
func Make(namespace string, attrs ...string) (string, error) {
	if len(attrs) == 0 {
		return "", fmt.Errorf("%w: no attributes", ErrInvalidKeyComponent)
	}
	return join(namespace, attrs)
}

// Prefix builds a partial composite key from a shorter attribute list.
// The result matches every full key sharing the same leading attributes
// (a prefix match on components, not a substring match). The attribute
// list may be empty, in which case the prefix covers the whole namespace.
func Prefix(namespace string, attrs ...string) (string, error) {
	key, err := join(namespace, attrs)
	if err != nil {
		return "", err
	}
	return key + Delimiter, nil
}

// Split parses a composite key back into its namespace and attributes.
func Split(key string) (namespace string, attrs []string, err error) {
	parts := strings.Split(key, Delimiter)
	if len(parts) < 2 {
		return "", nil, fmt.Errorf("%w: key %q has no attributes", ErrInvalidKeyComponent, key)
	}
	for _, p := range parts {
		if p == "" {
			return "", nil, fmt.Errorf("%w: key %q has an empty component", ErrInvalidKeyComponent, key)
		}
	}
	return parts[0], parts[1:], nil
}

func join(namespace string, attrs []string) (string, error) {
	if err := check(namespace); err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(namespace)
	for _, a := range attrs {
		if err := check(a); err != nil {
			return "", err
		}
		b.WriteString(Delimiter)
		b.WriteString(a)
	}
	return b.String(), nil
}

func check(component string) error {
	if component == "" {
		return fmt.Errorf("%w: empty component", ErrInvalidKeyComponent)
	}
	if strings.Contains(component, Delimiter) {
		return fmt.Errorf("%w: %q contains reserved delimiter %q", ErrInvalidKeyComponent, component, Delimiter)
	}
	return nil
}
