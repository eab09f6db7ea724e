package identity

import (
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"
)

const secret = "test-secret"

func TestIssueAndParse(t *testing.T) {
	now := time.Now()
	id, token, err := Issue(secret, "GOLF", rand.New(rand.NewSource(7)), time.Hour, now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !strings.HasPrefix(id, "GOLF-") {
		t.Errorf("id = %q", id)
	}
	got, err := Parse(secret, token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got != id {
		t.Errorf("Parse = %q, want %q", got, id)
	}
}

func TestParseRejects(t *testing.T) {
	now := time.Now()
	token, err := Sign(secret, "GOLF-AB12", time.Hour, now)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if _, err := Parse("other-secret", token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("wrong secret: err = %v", err)
	}

	expired, _ := Sign(secret, "GOLF-AB12", time.Minute, now.Add(-time.Hour))
	if _, err := Parse(secret, expired); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired: err = %v", err)
	}

	if _, err := Parse(secret, "not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("garbage: err = %v", err)
	}
}

func TestSignRejectsBadInput(t *testing.T) {
	if _, err := Sign("", "GOLF-AB12", time.Hour, time.Now()); err == nil {
		t.Error("empty secret accepted")
	}
	if _, err := Sign(secret, "golf", time.Hour, time.Now()); err == nil {
		t.Error("bad id accepted")
	}
}

func TestOwns(t *testing.T) {
	cases := []struct {
		room string
		want bool
	}{
		{"GOLF-AB12", true},
		{"GOLF-AB12-2", true},
		{"GOLF-AB12-", false},
		{"GOLF-AB13", false},
		{"GOLF-AB12X", false},
	}
	for _, tc := range cases {
		if got := Owns("GOLF-AB12", tc.room); got != tc.want {
			t.Errorf("Owns(%q) = %v, want %v", tc.room, got, tc.want)
		}
	}
}
