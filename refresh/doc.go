// Package refresh implements the Redis-backed store for opaque, single-use
// refresh tokens.
//
// # Token lifecycle
//
// A token is a random UUID string. Its record (username, roles, issue and
// expiry instants) lives under "<prefix>:<token>". A token is either LIVE
// (key present) or ABSENT. [Store.Issue] is the only way to create a LIVE
// token and [Store.Consume] always moves it to ABSENT, even when the record
// turns out to be expired or unreadable.
//
// # Concurrency
//
// Consume is a GET followed by a DEL; they are separate round-trips, so two
// concurrent consumers of the same token can both observe it as LIVE. Callers
// that need strict single-use under contention must serialize on the token.
//
// # What this package must NOT do
//
//   - Verify passwords or resolve roles.
//   - Import the root package, jwt, or store (the access token is minted
//     through a caller-supplied [MintFunc]).
package refresh
