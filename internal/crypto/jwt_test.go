package crypto

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newTestSigner(t *testing.T, secret string) *Signer {
	t.Helper()
	s, err := NewSigner(secret, "authkeep", "authkeep-api")
	if err != nil {
		t.Fatalf("NewSigner() unexpected error: %v", err)
	}
	return s
}

func TestNewSignerMissingSecret(t *testing.T) {
	if _, err := NewSigner("", "authkeep", "authkeep-api"); !errors.Is(err, ErrMissingSecret) {
		t.Errorf("NewSigner() error = %v, want ErrMissingSecret", err)
	}
}

func TestSignVerifyRoundTrip(t *testing.T) {
	s := newTestSigner(t, "test-secret")

	tests := []struct {
		name   string
		claims Claims
	}{
		{name: "session", claims: Claims{"id": "0b6f8a3e-3c1d-4d7e-9b1a-6c2f0e8d4a11"}},
		{name: "confirmation", claims: Claims{"email": "ann@x.com"}},
		{name: "several", claims: Claims{"id": "42", "email": "ann@x.com", "scope": "read"}},
		{name: "empty", claims: Claims{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := s.Sign(tt.claims, time.Hour)
			if err != nil {
				t.Fatalf("Sign() unexpected error: %v", err)
			}
			if token == "" {
				t.Fatal("Sign() returned empty string")
			}

			got, err := s.Verify(token)
			if err != nil {
				t.Fatalf("Verify() unexpected error: %v", err)
			}
			if len(got) != len(tt.claims) {
				t.Fatalf("Verify() claims = %v, want %v", got, tt.claims)
			}
			for k, v := range tt.claims {
				if got[k] != v {
					t.Errorf("Verify() claim %q = %v, want %v", k, got[k], v)
				}
			}
		})
	}
}

func TestSignRejectsReservedClaims(t *testing.T) {
	s := newTestSigner(t, "test-secret")

	for _, name := range []string{"exp", "iat", "nbf", "iss", "aud", "sub", "jti"} {
		t.Run(name, func(t *testing.T) {
			token, err := s.Sign(Claims{"id": "1", name: "caller-value"}, time.Hour)
			if !errors.Is(err, ErrReservedClaim) {
				t.Errorf("Sign() error = %v, want ErrReservedClaim", err)
			}
			if token != "" {
				t.Errorf("Sign() token = %q, want empty", token)
			}
		})
	}
}

func TestVerifyInvalid(t *testing.T) {
	_, err := newTestSigner(t, "test-secret").Verify("not-a-valid-token")
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify() error = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	token, err := newTestSigner(t, "correct-secret").Sign(Claims{"id": "42"}, time.Hour)
	if err != nil {
		t.Fatalf("Sign() unexpected error: %v", err)
	}

	if _, err := newTestSigner(t, "wrong-secret").Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify() error = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyExpired(t *testing.T) {
	s := newTestSigner(t, "test-secret")

	for _, ttl := range []time.Duration{0, -time.Minute} {
		token, err := s.Sign(Claims{"email": "ann@x.com"}, ttl)
		if err != nil {
			t.Fatalf("Sign() unexpected error: %v", err)
		}
		if _, err := s.Verify(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Verify() ttl=%v error = %v, want ErrInvalidToken", ttl, err)
		}
	}
}

func TestVerifyExpiresWithClock(t *testing.T) {
	s := newTestSigner(t, "test-secret")
	now := time.Now()
	s.now = func() time.Time { return now }

	token, err := s.Sign(Claims{"id": "42"}, time.Minute)
	if err != nil {
		t.Fatalf("Sign() unexpected error: %v", err)
	}

	if _, err := s.Verify(token); err != nil {
		t.Fatalf("Verify() before expiry unexpected error: %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := s.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify() after expiry error = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyWrongIssuerAndAudience(t *testing.T) {
	secret := "test-secret"

	tests := []struct {
		name     string
		issuer   string
		audience string
	}{
		{name: "wrong issuer", issuer: "wrong-issuer", audience: "authkeep-api"},
		{name: "wrong audience", issuer: "authkeep", audience: "wrong-audience"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := jwt.MapClaims{
				"id":  "42",
				"iss": tt.issuer,
				"aud": tt.audience,
				"exp": jwt.NewNumericDate(time.Now().Add(time.Hour)),
				"iat": jwt.NewNumericDate(time.Now()),
			}
			tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
			if err != nil {
				t.Fatalf("SignedString() unexpected error: %v", err)
			}

			if _, err := newTestSigner(t, secret).Verify(tokenString); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Verify() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestVerifyRejectsOtherAlgorithms(t *testing.T) {
	claims := jwt.MapClaims{
		"id":  "42",
		"iss": "authkeep",
		"aud": "authkeep-api",
		"exp": jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("SignedString() unexpected error: %v", err)
	}

	if _, err := newTestSigner(t, "test-secret").Verify(tokenString); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify() error = %v, want ErrInvalidToken", err)
	}
}
