package venue

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"strings"
	"testing"
)

func testKeyPEM(t *testing.T) string {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	der := x509.MarshalPKCS1PrivateKey(key)
	block := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: der}
	return string(pem.EncodeToMemory(block))
}

func TestNewAuthParsesPKCS1Key(t *testing.T) {
	t.Parallel()
	a, err := NewAuth("key-id", testKeyPEM(t))
	if err != nil {
		t.Fatalf("NewAuth: %v", err)
	}
	if a.apiKeyID != "key-id" {
		t.Errorf("apiKeyID = %q, want key-id", a.apiKeyID)
	}
}

func TestNewAuthRejectsGarbage(t *testing.T) {
	t.Parallel()
	if _, err := NewAuth("key-id", "not a pem"); err == nil {
		t.Error("expected an error for invalid PEM")
	}
}

func TestHeadersIncludesAllThree(t *testing.T) {
	t.Parallel()
	a, err := NewAuth("key-id", testKeyPEM(t))
	if err != nil {
		t.Fatalf("NewAuth: %v", err)
	}

	headers, err := a.Headers("GET", "/trade-api/v2/portfolio/balance")
	if err != nil {
		t.Fatalf("Headers: %v", err)
	}

	for _, h := range []string{"KALSHI-ACCESS-KEY", "KALSHI-ACCESS-SIGNATURE", "KALSHI-ACCESS-TIMESTAMP"} {
		if headers[h] == "" {
			t.Errorf("missing or empty header %q", h)
		}
	}
	if headers["KALSHI-ACCESS-KEY"] != "key-id" {
		t.Errorf("KALSHI-ACCESS-KEY = %q, want key-id", headers["KALSHI-ACCESS-KEY"])
	}
}

func TestHeadersSignatureVariesByPath(t *testing.T) {
	t.Parallel()
	a, err := NewAuth("key-id", testKeyPEM(t))
	if err != nil {
		t.Fatalf("NewAuth: %v", err)
	}

	h1, _ := a.Headers("GET", "/a")
	h2, _ := a.Headers("GET", "/b")
	if h1["KALSHI-ACCESS-SIGNATURE"] == h2["KALSHI-ACCESS-SIGNATURE"] {
		t.Error("expected different signatures for different paths")
	}
}

func TestHeadersTimestampIsNumeric(t *testing.T) {
	t.Parallel()
	a, err := NewAuth("key-id", testKeyPEM(t))
	if err != nil {
		t.Fatalf("NewAuth: %v", err)
	}
	headers, _ := a.Headers("GET", "/x")
	ts := headers["KALSHI-ACCESS-TIMESTAMP"]
	if ts == "" || strings.ContainsAny(ts, "abcdefghijklmnopqrstuvwxyz") {
		t.Errorf("timestamp header looks malformed: %q", ts)
	}
}
