// Package vm implements the mixin object runtime.
//
// This package contains:
//   - Reference-counted object shells with strong and weak counts
//   - Class composition: pushing, checking and removing classes at run time
//   - Selector-keyed method dispatch with override (supermethod) chains
//   - Structured inspection and lifecycle tracing
//
// Reference counting is safe for concurrent use. Everything that changes
// the classes or methods of an Object is not, and callers must serialize
// it, usually by composing an object completely before sharing it.
package vm
