package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"
)

// Signer produces HMAC-SHA256 signatures over chain-of-custody records and network snapshots
type Signer struct {
	secret []byte
}

// NewSigner creates a signer. An empty secret is rejected.
func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, fmt.Errorf("signing secret is required")
	}
	return &Signer{secret: []byte(secret)}, nil
}

// Sign returns the hex HMAC of the pipe-joined fields
func (s *Signer) Sign(fields ...string) string {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(strings.Join(fields, "|")))
	return hex.EncodeToString(h.Sum(nil))
}

// Verify checks a signature produced by Sign over the same fields
func (s *Signer) Verify(signature string, fields ...string) bool {
	return hmac.Equal([]byte(s.Sign(fields...)), []byte(signature))
}

// SignEvidence signs the custody fields of an evidence record
func (s *Signer) SignEvidence(evidenceID string, caseID int64, sha256Hex, collectedBy string, collectedAt time.Time) string {
	return s.Sign(evidenceID, fmt.Sprint(caseID), sha256Hex, collectedBy, collectedAt.UTC().Format(time.RFC3339Nano))
}

// SignSnapshot signs an archived network snapshot by its content digest
func (s *Signer) SignSnapshot(caseID int64, generationID, digest string) string {
	return s.Sign(fmt.Sprint(caseID), generationID, digest)
}

// SHA256Hex hashes content for evidence identification
func SHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// SHA256Reader hashes a stream and reports its size
func SHA256Reader(r io.Reader) (string, int64, error) {
	h := sha256.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return "", 0, fmt.Errorf("failed to hash content: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}
