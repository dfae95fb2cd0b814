// Package internal holds the randomness helpers shared by the root engine:
// one-time code generation and reset-token generation/digesting. All secret
// material is drawn from crypto/rand.
package internal
