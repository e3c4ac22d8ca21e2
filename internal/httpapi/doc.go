// Package httpapi exposes the engine over JSON/HTTP with echo.
//
// Routes live under /api/auth (login, register, refresh) and /api/user/:id.
// Field validation failures answer 400 with a field to message map; every
// other error answers {"error": msg}.
package httpapi
