package token

import (
	"errors"
	"strings"
	"testing"
)

func TestSignPayloadHex_FallbackWithoutKey(t *testing.T) {
	t.Setenv(HMACEnvKey, "")

	sig := SignPayloadHex("sess-1|user-1|PIXFOX07|1234567890")
	if len(sig) != 64 {
		t.Fatalf("signature length = %d, want 64 hex chars", len(sig))
	}
	if !VerifyPayloadHex("sess-1|user-1|PIXFOX07|1234567890", sig) {
		t.Fatal("signature should verify in the same mode")
	}
}

func TestSignPayloadHex_HMACModeChangesSignature(t *testing.T) {
	payload := "sess-1|user-1|PIXFOX07|1234567890"

	t.Setenv(HMACEnvKey, "")
	plain := SignPayloadHex(payload)

	t.Setenv(HMACEnvKey, strings.Repeat("k", 32))
	keyed := SignPayloadHex(payload)

	if plain == keyed {
		t.Fatal("HMAC mode must produce a different signature")
	}
	if !VerifyPayloadHex(payload, keyed) {
		t.Fatal("keyed signature should verify while the key is set")
	}
	if VerifyPayloadHex(payload, plain) {
		t.Fatal("unkeyed signature must not verify in HMAC mode")
	}
}

func TestSignPayloadHexRequireHMAC(t *testing.T) {
	t.Setenv(HMACEnvKey, "")
	if _, err := SignPayloadHexRequireHMAC("p", 32); !errors.Is(err, ErrHMACKeyMissing) {
		t.Fatalf("err = %v, want ErrHMACKeyMissing", err)
	}

	t.Setenv(HMACEnvKey, "short")
	if _, err := SignPayloadHexRequireHMAC("p", 32); !errors.Is(err, ErrHMACKeyTooShort) {
		t.Fatalf("err = %v, want ErrHMACKeyTooShort", err)
	}

	t.Setenv(HMACEnvKey, strings.Repeat("k", 32))
	sig, err := SignPayloadHexRequireHMAC("p", 32)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sig) != 64 {
		t.Fatalf("signature length = %d", len(sig))
	}
}
