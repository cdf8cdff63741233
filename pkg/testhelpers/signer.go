package testhelpers

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/floroz/buynow/pkg/auth"
)

const TestIssuer = "buynow-test"

// NewTestSigner generates a throwaway RSA key pair and returns a Signer able to issue tokens
func NewTestSigner(t *testing.T) *auth.Signer {
	t.Helper()
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate RSA key: %s", err)
	}

	privPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	})
	pubBytes, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	if err != nil {
		t.Fatalf("failed to marshal public key: %s", err)
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes})

	signer, err := auth.NewSigner(privPEM, pubPEM, TestIssuer)
	if err != nil {
		t.Fatalf("failed to create signer: %s", err)
	}
	return signer
}

// IssueTestToken issues a short lived token for accountID
func IssueTestToken(t *testing.T, signer *auth.Signer, accountID uuid.UUID, permissions ...string) string {
	t.Helper()
	token, err := signer.IssueToken(accountID, permissions, time.Hour)
	if err != nil {
		t.Fatalf("failed to issue token: %s", err)
	}
	return token
}
