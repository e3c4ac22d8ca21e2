// Package flows contains pure-function orchestrators for every Engine operation.
//
// Each flow function (RunLogin, RunRegister, RunRefresh, RunAccountLookup)
// accepts a typed dependency struct and returns results without side-effects
// beyond those dependencies. The Engine builds the dependency structs once and
// stays a thin mapping layer.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the relational store, role resolver,
// password hasher, JWT manager, refresh store, logger and metrics. They do
// NOT own any of these resources; ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import the root package (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency functions.
package flows
