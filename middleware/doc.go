// Package middleware provides net/http adapters that enforce access tokens
// issued by [sessionauth.Engine].
//
//   - [Guard] reads the Authorization bearer token, calls Engine.ValidateAccess
//     and stores the claims in the request context.
//   - [RequireRole] rejects requests whose claims lack a role.
//
// Token parsing stays in the engine. The middleware only maps outcomes to 401
// and 403 responses with a small JSON body.
package middleware
