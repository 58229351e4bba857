package token

import (
	"context"
	"strings"
	"testing"
)

func FuzzProviderVerify(f *testing.F) {
	f.Add("eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.eyJzdWIiOiJ1c2VyLTEifQ.sig")
	f.Add("invalid.token")
	f.Add("")
	f.Add("a.b.c")
	f.Add(".......")
	f.Add(strings.Repeat("a", 10000))

	provider, err := NewProvider([]byte("fuzz-test-secret-key-32-bytes!!!"), NewRolePolicy(nil))
	if err != nil {
		f.Fatalf("NewProvider() error = %v", err)
	}

	f.Fuzz(func(t *testing.T, input string) {
		// Must not panic, and must never verify without a valid signature.
		claims, err := provider.Verify(context.Background(), input)
		if err == nil && claims.ID == "" && input == "" {
			t.Fatalf("empty input verified")
		}
	})
}

func FuzzDecodeSegment(f *testing.F) {
	f.Add("eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9")
	f.Add("aW52YWxpZA")
	f.Add("")
	f.Add("!!invalid-base64!!")
	f.Add("e30")
	f.Add(strings.Repeat("A", 1000))

	f.Fuzz(func(t *testing.T, input string) {
		var header tokenHeader
		_ = decodeSegment(input, &header)

		var payload tokenPayload
		_ = decodeSegment(input, &payload)
	})
}

func FuzzSignatureVerification(f *testing.F) {
	f.Add("header.payload", "signature", "HS256")
	f.Add("", "", "")
	f.Add("test", "test", "HS512")
	f.Add(strings.Repeat("x", 1000), strings.Repeat("y", 1000), "HS384")

	provider, err := NewProvider([]byte("fuzz-test-secret-key-32-bytes!!!"), NewRolePolicy(nil), "HS256", "HS384", "HS512")
	if err != nil {
		f.Fatalf("NewProvider() error = %v", err)
	}

	f.Fuzz(func(t *testing.T, input, signature, alg string) {
		_ = provider.verifySignature(input, signature, alg)
	})
}
