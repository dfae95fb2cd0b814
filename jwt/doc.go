// Package jwt is the stateless token service: it signs and verifies the two
// bearer-token classes (access and refresh) as self-contained JWTs carrying
// subject identity, account email, and a class tag.
//
// Access and refresh tokens are signed with distinct keys. Presenting a
// refresh token where an access token is expected fails the class check even
// before any caller-side policy runs, and a signature minted with one key can
// never verify under the other.
//
// All verification failures are returned errors; nothing in this package
// panics on untrusted input.
package jwt
