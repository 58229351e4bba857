package otp

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestGenerateRecoveryCodes(t *testing.T) {
	codes, set, err := GenerateRecoveryCodes(RecoveryOptions{Cost: bcrypt.MinCost})
	if err != nil {
		t.Fatalf("GenerateRecoveryCodes() error = %v", err)
	}
	if len(codes) != DefaultRecoveryCount {
		t.Fatalf("len(codes) = %d, want %d", len(codes), DefaultRecoveryCount)
	}
	if set.Remaining() != DefaultRecoveryCount {
		t.Fatalf("Remaining() = %d, want %d", set.Remaining(), DefaultRecoveryCount)
	}

	seen := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		if _, dup := seen[code]; dup {
			t.Fatalf("duplicate recovery code %q", code)
		}
		seen[code] = struct{}{}
		if !strings.Contains(code, "-") {
			t.Fatalf("recovery code %q missing group separator", code)
		}
	}
}

func TestRecoveryCodeSingleUse(t *testing.T) {
	codes, set, err := GenerateRecoveryCodes(RecoveryOptions{Count: 3, Cost: bcrypt.MinCost})
	if err != nil {
		t.Fatalf("GenerateRecoveryCodes() error = %v", err)
	}

	if !set.Consume(codes[0]) {
		t.Fatalf("Consume(valid) = false, want true")
	}
	if set.Consume(codes[0]) {
		t.Fatalf("Consume(reused) = true, want false")
	}
	if set.Remaining() != 2 {
		t.Fatalf("Remaining() = %d, want 2", set.Remaining())
	}
	if set.Consume("BOGUS-CODES") {
		t.Fatalf("Consume(bogus) = true, want false")
	}
}

func TestRecoveryCodeNormalization(t *testing.T) {
	codes, set, err := GenerateRecoveryCodes(RecoveryOptions{Count: 1, Cost: bcrypt.MinCost})
	if err != nil {
		t.Fatalf("GenerateRecoveryCodes() error = %v", err)
	}

	// Users retype codes without dashes and in lowercase.
	retyped := " " + strings.ToLower(strings.ReplaceAll(codes[0], "-", "")) + " "
	if !set.Consume(retyped) {
		t.Fatalf("Consume(retyped form) = false, want true")
	}
}

func TestRecoverySnapshotRestore(t *testing.T) {
	codes, set, err := GenerateRecoveryCodes(RecoveryOptions{Count: 2, Cost: bcrypt.MinCost})
	if err != nil {
		t.Fatalf("GenerateRecoveryCodes() error = %v", err)
	}

	restored := RestoreRecoveryCodes(set.Snapshot())
	if restored.Remaining() != 2 {
		t.Fatalf("Remaining() = %d, want 2", restored.Remaining())
	}
	if !restored.Consume(codes[1]) {
		t.Fatalf("Consume() on restored set = false, want true")
	}
	// The original set is unaffected by the restored copy.
	if set.Remaining() != 2 {
		t.Fatalf("original Remaining() = %d, want 2", set.Remaining())
	}
}

func TestGenerateRecoveryCodesValidation(t *testing.T) {
	if _, _, err := GenerateRecoveryCodes(RecoveryOptions{Count: -1}); !errors.Is(err, ErrRecoveryInvalidCount) {
		t.Fatalf("GenerateRecoveryCodes(negative count) error = %v, want ErrRecoveryInvalidCount", err)
	}
	if _, _, err := GenerateRecoveryCodes(RecoveryOptions{Cost: 99}); !errors.Is(err, ErrRecoveryInvalidCost) {
		t.Fatalf("GenerateRecoveryCodes(bad cost) error = %v, want ErrRecoveryInvalidCost", err)
	}
}
