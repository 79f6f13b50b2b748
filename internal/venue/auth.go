package venue

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"strconv"
	"time"
)

// Auth signs venue REST requests with RSA-PSS over SHA-256, per the
// venue's wire contract: the message is "<timestamp>" + method + path,
// and the signature is delivered alongside the timestamp and key id as
// three request headers.
type Auth struct {
	apiKeyID   string
	privateKey *rsa.PrivateKey
}

// NewAuth parses a PEM-encoded RSA private key and pairs it with the
// venue-issued API key id.
func NewAuth(apiKeyID, privateKeyPEM string) (*Auth, error) {
	block, _ := pem.Decode([]byte(privateKeyPEM))
	if block == nil {
		return nil, fmt.Errorf("venue: no PEM block found in private key")
	}

	key, err := parseRSAPrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("venue: parse private key: %w", err)
	}

	return &Auth{apiKeyID: apiKeyID, privateKey: key}, nil
}

func parseRSAPrivateKey(der []byte) (*rsa.PrivateKey, error) {
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, err
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is not RSA")
	}
	return rsaKey, nil
}

// Headers computes the three auth headers for a request to method+path,
// signing "<timestamp><method><path>" with RSA-PSS over SHA-256.
func (a *Auth) Headers(method, path string) (map[string]string, error) {
	timestampMs := strconv.FormatInt(time.Now().UnixMilli(), 10)
	message := timestampMs + method + path

	digest := sha256.Sum256([]byte(message))
	sig, err := rsa.SignPSS(rand.Reader, a.privateKey, crypto.SHA256, digest[:], &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthAuto,
		Hash:       crypto.SHA256,
	})
	if err != nil {
		return nil, fmt.Errorf("venue: sign request: %w", err)
	}

	return map[string]string{
		"KALSHI-ACCESS-KEY":       a.apiKeyID,
		"KALSHI-ACCESS-SIGNATURE": base64.StdEncoding.EncodeToString(sig),
		"KALSHI-ACCESS-TIMESTAMP": timestampMs,
	}, nil
}
