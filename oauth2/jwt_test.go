package oauth2

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": "svc", "exp": exp.Unix()}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := tok.SignedString([]byte("does-not-matter-we-never-verify"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestExpiresAtFromJWT_ReadsExpClaim(t *testing.T) {
	want := time.Now().Add(time.Hour).Truncate(time.Second)
	got, ok := ExpiresAtFromJWT(signedToken(t, want))
	if !ok {
		t.Fatal("ExpiresAtFromJWT() ok = false, want true")
	}
	if !got.Equal(want) {
		t.Errorf("ExpiresAtFromJWT() = %v, want %v", got, want)
	}
}

func TestExpiresAtFromJWT_RejectsMalformedToken(t *testing.T) {
	if _, ok := ExpiresAtFromJWT("not-a-jwt"); ok {
		t.Fatal("ExpiresAtFromJWT() ok = true for malformed input, want false")
	}
}

func TestCache_RefreshFallsBackToJWTExpClaimWhenFetcherOmitsExpiresAt(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	fetcher := func(_ context.Context, _ GrantType, _, _ string) (Token, error) {
		return Token{AccessToken: signedToken(t, exp)}, nil
	}

	c := NewCache(fetcher, Config{})
	tok, err := c.Get(context.Background(), GrantClientCredentials, "read")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !tok.ExpiresAt.Equal(exp) {
		t.Errorf("ExpiresAt = %v, want %v", tok.ExpiresAt, exp)
	}
}
