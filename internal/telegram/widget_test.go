package telegram

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBotToken = "110201543:AAHdqTcvCH1vGWJxfSeofSAs0K5PALDsaw"

func validClaim(now time.Time) *LoginClaim {
	c := &LoginClaim{
		ID:        42,
		FirstName: "Alice",
		LastName:  "Liddell",
		Username:  "alice",
		PhotoURL:  "https://t.me/i/userpic/320/alice.jpg",
		AuthDate:  now.Add(-time.Minute).Unix(),
	}
	c.Hash = Sign(c, testBotToken)
	return c
}

func newTestVerifier(now time.Time) *Verifier {
	v := NewVerifier(testBotToken, 0)
	v.now = func() time.Time { return now }
	return v
}

func TestVerify_ValidClaim(t *testing.T) {
	now := time.Now()
	v := newTestVerifier(now)
	c := validClaim(now)

	require.NoError(t, v.Verify(c))

	// deterministic: same inputs, same result
	require.NoError(t, v.Verify(c))
}

func TestVerify_OptionalFieldsOmitted(t *testing.T) {
	now := time.Now()
	v := newTestVerifier(now)

	c := &LoginClaim{ID: 42, FirstName: "A", AuthDate: now.Unix()}
	c.Hash = Sign(c, testBotToken)

	require.NoError(t, v.Verify(c))
}

func TestVerify_TamperedFieldInvalidatesSignature(t *testing.T) {
	now := time.Now()
	v := newTestVerifier(now)

	mutations := map[string]func(*LoginClaim){
		"id":         func(c *LoginClaim) { c.ID = 43 },
		"first_name": func(c *LoginClaim) { c.FirstName = "Mallory" },
		"last_name":  func(c *LoginClaim) { c.LastName = "Other" },
		"username":   func(c *LoginClaim) { c.Username = "mallory" },
		"photo_url":  func(c *LoginClaim) { c.PhotoURL = "https://evil.example/x.jpg" },
		"auth_date":  func(c *LoginClaim) { c.AuthDate = c.AuthDate + 1 },
	}

	for field, mutate := range mutations {
		t.Run(field, func(t *testing.T) {
			c := validClaim(now)
			mutate(c)
			assert.ErrorIs(t, v.Verify(c), ErrInvalidSignature)
		})
	}
}

func TestVerify_WrongHash(t *testing.T) {
	now := time.Now()
	v := newTestVerifier(now)

	c := validClaim(now)
	c.Hash = "deadbeef" + c.Hash[8:]
	assert.ErrorIs(t, v.Verify(c), ErrInvalidSignature)
}

func TestVerify_UppercaseHashAccepted(t *testing.T) {
	now := time.Now()
	v := newTestVerifier(now)

	c := validClaim(now)
	c.Hash = strings.ToUpper(c.Hash)
	// hex decoding is case-insensitive; verification must not depend on case
	require.NoError(t, v.Verify(c))
}

func TestVerify_StaleClaim(t *testing.T) {
	now := time.Now()
	v := newTestVerifier(now)

	c := &LoginClaim{ID: 42, FirstName: "A", AuthDate: now.Add(-25 * time.Hour).Unix()}
	c.Hash = Sign(c, testBotToken)

	// correct signature, but outside the freshness window
	assert.ErrorIs(t, v.Verify(c), ErrStaleClaim)
}

func TestVerify_CustomFreshnessWindow(t *testing.T) {
	now := time.Now()
	v := NewVerifier(testBotToken, time.Minute)
	v.now = func() time.Time { return now }

	c := &LoginClaim{ID: 42, FirstName: "A", AuthDate: now.Add(-2 * time.Minute).Unix()}
	c.Hash = Sign(c, testBotToken)

	assert.ErrorIs(t, v.Verify(c), ErrStaleClaim)
}

func TestVerify_MalformedClaims(t *testing.T) {
	now := time.Now()
	v := newTestVerifier(now)

	tests := []struct {
		name  string
		claim *LoginClaim
	}{
		{"nil claim", nil},
		{"missing id", &LoginClaim{FirstName: "A", AuthDate: now.Unix(), Hash: "aa"}},
		{"missing first_name", &LoginClaim{ID: 1, AuthDate: now.Unix(), Hash: "aa"}},
		{"missing auth_date", &LoginClaim{ID: 1, FirstName: "A", Hash: "aa"}},
		{"missing hash", &LoginClaim{ID: 1, FirstName: "A", AuthDate: now.Unix()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, v.Verify(tt.claim), ErrMalformedClaim)
		})
	}
}

func TestVerify_NonHexHashIsMalformed(t *testing.T) {
	now := time.Now()
	v := newTestVerifier(now)

	c := validClaim(now)
	c.Hash = "zz" + c.Hash[2:]
	assert.ErrorIs(t, v.Verify(c), ErrMalformedClaim)
}

func TestVerify_WrongBotToken(t *testing.T) {
	now := time.Now()
	c := validClaim(now)

	other := NewVerifier("999999:othertoken", 0)
	other.now = func() time.Time { return now }
	assert.ErrorIs(t, other.Verify(c), ErrInvalidSignature)
}

func TestDataCheckString_SortedNoTrailingNewline(t *testing.T) {
	c := &LoginClaim{ID: 7, FirstName: "A", Username: "u", AuthDate: 1700000000}
	got := dataCheckString(c)
	assert.Equal(t, "auth_date=1700000000\nfirst_name=A\nid=7\nusername=u", got)
}
