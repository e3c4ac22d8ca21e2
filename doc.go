// Package sessionauth issues and validates session credentials: it verifies
// username and password pairs, mints short-lived HS256 access tokens carrying
// role claims, rotates opaque single-use refresh tokens stored in Redis, and
// onboards new accounts after resolving their requested roles.
//
// The package is designed for concurrent server workloads: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// sessionauth is the public surface. It exposes [Engine], [Builder], [Config], and value
// types (LoginResult, RegisterResult, MetricsSnapshot, etc.). Flow orchestration lives
// under internal/flows; persistence contracts live in store; the refresh token store
// lives in refresh.
//
// # What this package must NOT do
//
//   - Expose Redis clients or record encoding details in its public API.
//   - Perform I/O outside of Engine methods (construction via Builder is allocation-only
//     until Build).
//   - Import any sub-package that re-imports sessionauth (no import cycles).
//
// # Cost contract
//
// ValidateAccess is pure CPU: no Redis or database round-trips. Login costs one password
// verification plus one Redis write; RefreshAccessToken costs three Redis commands and no
// database access.
package sessionauth
