// Package store declares the relational persistence contract used by the
// session engine: accounts, roles, and the account-role link table.
//
// Implementations live in subpackages (memory, postgres, mysql). All of them
// report absence with [ErrNotFound] and unique-key violations with
// [ErrConflict]; backend failures are wrapped with [ErrUnavailable].
package store
