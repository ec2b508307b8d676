package app

import (
	"errors"

	"tero/cmd/security/token"
)

// ValidateSecurityConfig enforces the startup security policy: under
// TERO_REQUIRE_TOKEN_HMAC, connection tokens must be HMAC-signed, never
// the unkeyed fallback.
func ValidateSecurityConfig(cfg Config) error {
	if !cfg.RequireTokenHMAC {
		return nil
	}

	// Minimum 32 bytes for an HMAC-SHA256 secret; measured in bytes, the
	// key is used raw.
	if _, err := token.HMACKeyFromEnv(32); err != nil {
		switch {
		case errors.Is(err, token.ErrHMACKeyMissing):
			return errors.New("security policy: TERO_REQUIRE_TOKEN_HMAC=true but TERO_TOKEN_HMAC_KEY is missing")
		case errors.Is(err, token.ErrHMACKeyTooShort):
			return errors.New("security policy: TERO_REQUIRE_TOKEN_HMAC=true but TERO_TOKEN_HMAC_KEY is too short (min 32 bytes)")
		default:
			return err
		}
	}

	if !token.HMACEnabled() {
		return errors.New("security policy: TERO_REQUIRE_TOKEN_HMAC=true but token signer is not in HMAC mode")
	}

	return nil
}
