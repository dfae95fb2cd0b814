// Package middleware adapts the engine's access-token check to net/http.
// Guard is the gate the host application's router mounts in front of
// authenticated routes; handlers downstream read the verified claims with
// ClaimsFromContext.
package middleware
