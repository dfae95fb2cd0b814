// Package stores provides short-lived record stores for the credential
// lifecycle: outstanding one-time codes, password-reset grants, and the
// token revocation list. Each store exists in two backends: a process-local
// map guarded by a mutex (the default, deliberately volatile), and a
// Redis-backed variant for deployments that need a shared authoritative
// store across processes.
//
// # Design
//
// Records are single-use. Consume deletes the record inside the same
// critical section that checks expiry and compares the secret, so two
// concurrent Consume calls for one account admit at most one winner. Redis
// backends persist a versioned binary encoding and run mutations under
// WATCH/MULTI optimistic transactions with bounded retry. Secret comparisons
// use constant-time compare.
//
// # What this package must NOT do
//
//   - Import the root package or any sibling internal package.
//   - Generate codes or tokens; generation belongs to internal.
//   - Store plaintext reset tokens or raw revoked bearer strings.
package stores
