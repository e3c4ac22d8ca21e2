// Package password implements salted password hashing and verification with
// bcrypt.
//
// # Output format
//
// Hashes are standard bcrypt strings:
//
//	$2a$<cost>$<22-char salt><31-char hash>
//
// Every call to [Bcrypt.Hash] draws a fresh salt, so hashing the same input
// twice yields different strings that both verify.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Password policy (length,
// character classes) is enforced at the transport boundary.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords. Callers supply plaintext and receive hashes.
//   - Import any other package of this module.
//   - Log plaintext passwords at runtime.
package password
