package crypto

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

// fastParams keeps the suite quick; production parameters come from config.
func fastParams() HashParams {
	return HashParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
}

func newTestArgon2(t *testing.T) *Argon2idHasher {
	t.Helper()
	h, err := NewArgon2idHasher(fastParams())
	if err != nil {
		t.Fatalf("NewArgon2idHasher() unexpected error: %v", err)
	}
	return h
}

func TestArgon2idHashFormat(t *testing.T) {
	h, err := NewArgon2idHasher(DefaultHashParams())
	if err != nil {
		t.Fatalf("NewArgon2idHasher() unexpected error: %v", err)
	}

	hash, err := h.Hash("correct-horse-battery-staple")
	if err != nil {
		t.Fatalf("Hash() unexpected error: %v", err)
	}

	// $argon2id$v=19$m=65536,t=3,p=2$<salt>$<hash>
	parts := strings.Split(hash, "$")
	if len(parts) != 6 {
		t.Fatalf("Hash() expected 6 parts, got %d: %q", len(parts), hash)
	}
	if parts[1] != "argon2id" {
		t.Errorf("Hash() algorithm = %q, want %q", parts[1], "argon2id")
	}
	if parts[2] != "v=19" {
		t.Errorf("Hash() version = %q, want %q", parts[2], "v=19")
	}
	if parts[3] != "m=65536,t=3,p=2" {
		t.Errorf("Hash() params = %q, want %q", parts[3], "m=65536,t=3,p=2")
	}
}

func TestHashParamsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*HashParams)
		valid  bool
	}{
		{name: "defaults", mutate: func(*HashParams) {}, valid: true},
		{name: "zero iterations", mutate: func(p *HashParams) { p.Iterations = 0 }},
		{name: "zero parallelism", mutate: func(p *HashParams) { p.Parallelism = 0 }},
		{name: "memory below lanes", mutate: func(p *HashParams) { p.Memory = 4; p.Parallelism = 1 }},
		{name: "short salt", mutate: func(p *HashParams) { p.SaltLength = 4 }},
		{name: "short key", mutate: func(p *HashParams) { p.KeyLength = 8 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultHashParams()
			tt.mutate(&p)

			_, err := NewArgon2idHasher(p)
			if tt.valid && err != nil {
				t.Fatalf("NewArgon2idHasher() unexpected error: %v", err)
			}
			if !tt.valid && !errors.Is(err, ErrInvalidHashParams) {
				t.Fatalf("NewArgon2idHasher() error = %v, want ErrInvalidHashParams", err)
			}
		})
	}
}

func TestHashersVerify(t *testing.T) {
	bc, err := NewBcryptHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewBcryptHasher() unexpected error: %v", err)
	}

	hashers := map[string]Hasher{
		"argon2id": newTestArgon2(t),
		"bcrypt":   bc,
	}

	for name, h := range hashers {
		t.Run(name, func(t *testing.T) {
			hash, err := h.Hash("my-secure-password")
			if err != nil {
				t.Fatalf("Hash() unexpected error: %v", err)
			}
			if hash == "my-secure-password" {
				t.Fatal("Hash() returned the plaintext")
			}

			match, err := h.Verify("my-secure-password", hash)
			if err != nil {
				t.Fatalf("Verify() unexpected error: %v", err)
			}
			if !match {
				t.Error("Verify() returned false for correct password")
			}

			match, err = h.Verify("wrong-password", hash)
			if err != nil {
				t.Fatalf("Verify() unexpected error: %v", err)
			}
			if match {
				t.Error("Verify() returned true for wrong password")
			}
		})
	}
}

func TestHashProducesDifferentHashes(t *testing.T) {
	h := newTestArgon2(t)

	hash1, err := h.Hash("same-password")
	if err != nil {
		t.Fatalf("Hash() unexpected error: %v", err)
	}
	hash2, err := h.Hash("same-password")
	if err != nil {
		t.Fatalf("Hash() unexpected error: %v", err)
	}

	if hash1 == hash2 {
		t.Error("Hash() produced identical hashes for same password (salt should differ)")
	}

	for _, hash := range []string{hash1, hash2} {
		match, err := h.Verify("same-password", hash)
		if err != nil || !match {
			t.Errorf("Verify() = %v, %v; want true, nil", match, err)
		}
	}
}

func TestVerifyInvalidHash(t *testing.T) {
	h := newTestArgon2(t)

	tests := []string{
		"invalid-hash-format",
		"$bcrypt$v=19$m=1024,t=1,p=1$c2FsdHNhbHQ$aGFzaA",
		"$argon2id$v=18$m=1024,t=1,p=1$c2FsdHNhbHQ$aGFzaA",
		"$argon2id$v=19$m=1024,t=1,p=1$!!!$aGFzaA",
	}
	for _, encoded := range tests {
		if _, err := h.Verify("password", encoded); err == nil {
			t.Errorf("Verify(%q) expected error for invalid hash format", encoded)
		}
	}

	bc, _ := NewBcryptHasher(bcrypt.MinCost)
	if _, err := bc.Verify("password", "not-bcrypt"); !errors.Is(err, ErrInvalidHashFormat) {
		t.Errorf("bcrypt Verify() error = %v, want ErrInvalidHashFormat", err)
	}
}

func TestVerifyRejectsDegenerateParams(t *testing.T) {
	h := newTestArgon2(t)

	const tail = "$c2FsdHNhbHRzYWx0c2FsdA$MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY"
	tests := []struct {
		name   string
		params string
	}{
		{"zero iterations", "m=1024,t=0,p=1"},
		{"zero parallelism", "m=1024,t=1,p=0"},
		{"zero memory", "m=0,t=1,p=1"},
		{"memory below lanes", "m=8,t=1,p=2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := "$argon2id$v=19$" + tt.params + tail
			match, err := h.Verify("password", encoded)
			if !errors.Is(err, ErrInvalidHashFormat) {
				t.Errorf("Verify() error = %v, want ErrInvalidHashFormat", err)
			}
			if match {
				t.Error("Verify() matched a digest with degenerate parameters")
			}
		})
	}
}

func TestNewHasher(t *testing.T) {
	if _, err := NewHasher(AlgorithmArgon2id, fastParams(), bcrypt.DefaultCost); err != nil {
		t.Errorf("NewHasher(argon2id) unexpected error: %v", err)
	}
	if _, err := NewHasher(AlgorithmBcrypt, fastParams(), bcrypt.DefaultCost); err != nil {
		t.Errorf("NewHasher(bcrypt) unexpected error: %v", err)
	}
	if _, err := NewHasher(AlgorithmBcrypt, fastParams(), 99); !errors.Is(err, ErrInvalidHashParams) {
		t.Errorf("NewHasher(bcrypt, 99) error = %v, want ErrInvalidHashParams", err)
	}
	if _, err := NewHasher("md5", fastParams(), bcrypt.DefaultCost); !errors.Is(err, ErrUnknownAlgorithm) {
		t.Errorf("NewHasher(md5) error = %v, want ErrUnknownAlgorithm", err)
	}
}
