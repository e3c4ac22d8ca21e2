// Package jwt issues and verifies HS256 access tokens that carry the subject's
// role names. Tokens are never persisted; verification is purely cryptographic
// plus claim checks (expiry, optional issuer and audience).
package jwt
