// Package token mints and checks HMAC-signed access tokens. A token is
// base64url(claim JSON) + "." + base64url(HMAC-SHA256(claim JSON)); there is
// no header segment and no algorithm negotiation.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/stonebridge/membergate/internal/access/domain"
)

type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSigner(secret string, ttl time.Duration) (*Signer, error) {
	trimmed := strings.TrimSpace(secret)
	if trimmed == "" {
		return nil, domain.ErrInvalidToken
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Signer{
		secret: []byte(trimmed),
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// WithClock overrides the time source, used by expiry tests.
func (s *Signer) WithClock(now func() time.Time) *Signer {
	s.now = now
	return s
}

func (s *Signer) Mint(email, transactionID string) (string, domain.Claim, error) {
	issued := s.now()
	claim := domain.Claim{
		Email:         email,
		TransactionID: transactionID,
		IssuedAt:      issued,
		ExpiresAt:     issued.Add(s.ttl),
	}
	body, err := json.Marshal(claim)
	if err != nil {
		return "", domain.Claim{}, err
	}
	encoded := base64.RawURLEncoding.EncodeToString(body)
	return encoded + "." + s.sign(body), claim, nil
}

func (s *Signer) Check(token string) (*domain.Claim, error) {
	parts := strings.SplitN(strings.TrimSpace(token), ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, domain.ErrInvalidToken
	}
	body, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, domain.ErrInvalidToken
	}
	if !hmac.Equal([]byte(parts[1]), []byte(s.sign(body))) {
		return nil, domain.ErrInvalidToken
	}

	var claim domain.Claim
	if err := json.Unmarshal(body, &claim); err != nil {
		return nil, domain.ErrInvalidToken
	}
	if claim.Email == "" || claim.TransactionID == "" {
		return nil, domain.ErrInvalidToken
	}
	if s.now().After(claim.ExpiresAt) {
		return nil, domain.ErrTokenExpired
	}
	return &claim, nil
}

func (s *Signer) sign(body []byte) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write(body)
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
