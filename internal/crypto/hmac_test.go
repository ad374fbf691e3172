package crypto

import (
	"encoding/base64"
	"strings"
	"testing"
)

func testAuth() *BuilderAuth {
	return &BuilderAuth{
		Key:        "key-123",
		Secret:     "super-secret",
		Passphrase: "pass-456",
	}
}

func TestHeadersAtDeterministic(t *testing.T) {
	auth := testAuth()

	h1 := auth.HeadersAt("GET", "/builder/trades", "", 1700000000)
	h2 := auth.HeadersAt("GET", "/builder/trades", "", 1700000000)

	for _, key := range []string{
		"POLY_BUILDER_API_KEY",
		"POLY_BUILDER_TIMESTAMP",
		"POLY_BUILDER_PASSPHRASE",
		"POLY_BUILDER_SIGNATURE",
	} {
		if h1[key] == "" {
			t.Errorf("header %s missing", key)
		}
		if h1[key] != h2[key] {
			t.Errorf("header %s not deterministic: %q vs %q", key, h1[key], h2[key])
		}
	}

	if h1["POLY_BUILDER_API_KEY"] != "key-123" {
		t.Errorf("api key header = %q", h1["POLY_BUILDER_API_KEY"])
	}
	if h1["POLY_BUILDER_TIMESTAMP"] != "1700000000" {
		t.Errorf("timestamp header = %q", h1["POLY_BUILDER_TIMESTAMP"])
	}
	if h1["POLY_BUILDER_PASSPHRASE"] != "pass-456" {
		t.Errorf("passphrase header = %q", h1["POLY_BUILDER_PASSPHRASE"])
	}

	// SHA-256 digests encode to 44 base64 characters.
	sig := h1["POLY_BUILDER_SIGNATURE"]
	if raw, err := base64.StdEncoding.DecodeString(sig); err != nil || len(raw) != 32 {
		t.Errorf("signature %q is not a base64 SHA-256 digest", sig)
	}
}

func TestHeadersAtSignatureCoversAllInputs(t *testing.T) {
	auth := testAuth()
	base := auth.HeadersAt("GET", "/builder/trades", "", 1700000000)["POLY_BUILDER_SIGNATURE"]

	variants := map[string]string{
		"method":    auth.HeadersAt("POST", "/builder/trades", "", 1700000000)["POLY_BUILDER_SIGNATURE"],
		"path":      auth.HeadersAt("GET", "/time", "", 1700000000)["POLY_BUILDER_SIGNATURE"],
		"body":      auth.HeadersAt("GET", "/builder/trades", `{"a":1}`, 1700000000)["POLY_BUILDER_SIGNATURE"],
		"timestamp": auth.HeadersAt("GET", "/builder/trades", "", 1700000001)["POLY_BUILDER_SIGNATURE"],
	}
	for name, sig := range variants {
		if sig == base {
			t.Errorf("changing %s must change the signature", name)
		}
	}

	other := &BuilderAuth{Key: "key-123", Secret: "different", Passphrase: "pass-456"}
	if other.HeadersAt("GET", "/builder/trades", "", 1700000000)["POLY_BUILDER_SIGNATURE"] == base {
		t.Error("changing the secret must change the signature")
	}
}

func TestBuilderAuthStringRedacts(t *testing.T) {
	auth := testAuth()
	s := auth.String()

	if strings.Contains(s, "super-secret") {
		t.Errorf("String() leaks the secret: %s", s)
	}
	if !strings.Contains(s, "key-****") && !strings.Contains(s, "****") {
		t.Errorf("String() should redact: %s", s)
	}
}
