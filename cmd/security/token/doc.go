// Package token provides token hashing and signing primitives for Tero.
//
// It is the single source of truth for connection-token signing behavior.
//
// Design goals:
// - Default dev/back-compat mode: SHA-256(payload) when no HMAC key is configured.
// - Production-enforced mode: HMAC-SHA256(payload, key) when policy requires it.
// - Stable 64-char hex output for transport and constant-time comparison.
//
// Environment:
// - TERO_TOKEN_HMAC_KEY: when set, enables HMAC mode.
// Policy:
//   - If RequireTokenHMAC=true, callers MUST enforce a minimum key size (>= 32 bytes)
//     and MUST use HMAC (no SHA fallback).
package token
