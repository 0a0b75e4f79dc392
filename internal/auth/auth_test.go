package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/and161185/memoriz/internal/errs"
)

var key = []byte("test-signing-key")

func TestIssueAndVerify(t *testing.T) {
	t.Parallel()
	user := uuid.Must(uuid.NewV4())

	tok, exp, err := NewIssuer(key, time.Minute).Issue(user)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if time.Until(exp) > time.Minute || time.Until(exp) <= 0 {
		t.Fatalf("unexpected expiry %v", exp)
	}

	got, err := NewVerifier(key).UserID(tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got != user {
		t.Fatalf("got %s, want %s", got, user)
	}
}

func TestVerify_Rejects(t *testing.T) {
	t.Parallel()
	v := NewVerifier(key)
	user := uuid.Must(uuid.NewV4())

	otherKey, _, _ := NewIssuer([]byte("other"), time.Minute).Issue(user)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   user.String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})
	expiredTok, _ := expired.SignedString(key)

	hs512 := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{Subject: user.String()})
	hs512Tok, _ := hs512.SignedString(key)

	noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: user.String()})
	noExpTok, _ := noExp.SignedString(key)

	badSub := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "nope",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	badSubTok, _ := badSub.SignedString(key)

	cases := map[string]string{
		"garbage":     "not.a.jwt",
		"wrong key":   otherKey,
		"expired":     expiredTok,
		"no expiry":   noExpTok,
		"wrong alg":   hs512Tok,
		"bad subject": badSubTok,
	}
	for name, tok := range cases {
		if _, err := v.UserID(tok); !errors.Is(err, errs.ErrUnauthorized) {
			t.Fatalf("%s: want ErrUnauthorized, got %v", name, err)
		}
	}
}

func TestVerify_LegacyUserUUIDClaim(t *testing.T) {
	t.Parallel()
	user := uuid.Must(uuid.NewV4())
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserUUID: user.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	})
	signed, err := tok.SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	got, err := NewVerifier(key).UserID(signed)
	if err != nil || got != user {
		t.Fatalf("got %s, %v", got, err)
	}
}

func TestBearerToken(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer   abc  ", "abc", true},
		{"Basic abc", "", false},
		{"Bearer ", "", false},
		{"", "", false},
	}
	for _, tc := range tests {
		got, ok := BearerToken(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("BearerToken(%q) = %q,%v want %q,%v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestWithUserID_And_UserIDFromCtx(t *testing.T) {
	t.Parallel()

	if id, ok := UserIDFromCtx(context.Background()); ok || id != uuid.Nil {
		t.Fatalf("expected no user id in empty ctx")
	}

	want := uuid.Must(uuid.NewV4())
	got, ok := UserIDFromCtx(WithUserID(context.Background(), want))
	if !ok || got != want {
		t.Fatalf("mismatch: got %s, want %s", got, want)
	}

	bad := context.WithValue(context.Background(), userIDKey, "not-uuid")
	if id, ok := UserIDFromCtx(bad); ok || id != uuid.Nil {
		t.Fatalf("expected miss on wrong typed value")
	}
}
