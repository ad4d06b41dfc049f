package protocol

import (
	"fmt"
	"strings"
)

// DefaultNamespace is assumed when a name string carries no explicit namespace.
const DefaultNamespace = "minecraft"

// Name is a namespaced identifier of the form "namespace:path". Channel names,
// registry names and registry entries all use this format.
type Name struct {
	namespace string
	path      string
}

// NewName builds a Name from an explicit namespace and path without validation.
// Intended for compile-time constants; use ParseName for untrusted input.
func NewName(namespace, path string) Name {
	return Name{namespace: namespace, path: path}
}

// ParseName parses and validates a namespaced identifier. A missing namespace
// defaults to DefaultNamespace.
func ParseName(s string) (Name, error) {
	namespace, path := DefaultNamespace, s
	if idx := strings.IndexByte(s, ':'); idx >= 0 {
		namespace, path = s[:idx], s[idx+1:]
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if !validNamespace(namespace) {
		return Name{}, fmt.Errorf("invalid characters in namespace %q", namespace)
	}
	if !validPath(path) {
		return Name{}, fmt.Errorf("invalid characters in path %q", path)
	}
	return Name{namespace: namespace, path: path}, nil
}

// MustName parses a namespaced identifier and panics on failure. For constants.
func MustName(s string) Name {
	n, err := ParseName(s)
	if err != nil {
		panic(err)
	}
	return n
}

func (n Name) Namespace() string { return n.namespace }
func (n Name) Path() string      { return n.path }

func (n Name) String() string {
	return n.namespace + ":" + n.path
}

// IsZero reports whether the name is the zero value, used as "no channel".
func (n Name) IsZero() bool {
	return n.namespace == "" && n.path == ""
}

func validNamespace(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '_' || c == '-' || c == '.') {
			return false
		}
	}
	return true
}

func validPath(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '_' || c == '-' || c == '.' || c == '/') {
			return false
		}
	}
	return true
}
