package security

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	m := NewTokenManager("s3cret")
	raw, err := m.Issue("teacher-1", "teacher", time.Hour)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	claims, err := m.Verify(raw)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if claims.Subject != "teacher-1" || claims.Role != "teacher" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestTokenRejected(t *testing.T) {
	m := NewTokenManager("s3cret")
	valid, _ := m.Issue("teacher-1", "", time.Hour)

	expired := NewTokenManager("s3cret")
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _ := expired.Issue("teacher-1", "", time.Hour)

	other, _ := NewTokenManager("different").Issue("teacher-1", "", time.Hour)

	tests := []struct {
		name string
		raw  string
	}{
		{"garbage", "not-a-token"},
		{"expired", old},
		{"wrong secret", other},
		{"tampered", valid + "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.Verify(tt.raw); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Verify() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2025, 1, 6, 8, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow("a") {
		t.Error("third request in the window should be limited")
	}
	if !rl.Allow("b") {
		t.Error("other clients have their own window")
	}

	now = now.Add(time.Minute)
	if !rl.Allow("a") {
		t.Error("new window should allow requests again")
	}

	now = now.Add(3 * time.Minute)
	rl.evictIdle()
	if len(rl.clients) != 0 {
		t.Errorf("idle clients kept: %d", len(rl.clients))
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded chain", map[string]string{"X-Forwarded-For": "10.0.0.1, 10.0.0.2"}, "1.2.3.4:5000", "10.0.0.1"},
		{"real ip", map[string]string{"X-Real-IP": "10.0.0.9"}, "1.2.3.4:5000", "10.0.0.9"},
		{"remote addr", nil, "1.2.3.4:5000", "1.2.3.4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := ClientIP(r); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
