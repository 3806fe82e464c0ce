package token

import (
	"strings"
	"testing"
	"time"

	"github.com/stonebridge/membergate/internal/access/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMintCheckRoundTrip(t *testing.T) {
	signer, err := NewSigner("s3cret", time.Hour)
	require.NoError(t, err)

	signed, claim, err := signer.Mint("buyer@example.com", "cs_123")
	require.NoError(t, err)
	assert.Equal(t, time.Hour, claim.ExpiresAt.Sub(claim.IssuedAt))

	checked, err := signer.Check(signed)
	require.NoError(t, err)
	assert.Equal(t, "buyer@example.com", checked.Email)
	assert.Equal(t, "cs_123", checked.TransactionID)
}

func TestCheckRejectsTamperedToken(t *testing.T) {
	signer, err := NewSigner("s3cret", time.Hour)
	require.NoError(t, err)

	signed, _, err := signer.Mint("buyer@example.com", "cs_123")
	require.NoError(t, err)
	parts := strings.SplitN(signed, ".", 2)

	forged, _, err := signer.Mint("attacker@example.com", "cs_123")
	require.NoError(t, err)
	forgedParts := strings.SplitN(forged, ".", 2)

	// Claim from one token with the signature of another.
	_, err = signer.Check(forgedParts[0] + "." + parts[1])
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	_, err = signer.Check("not-a-token")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	_, err = signer.Check("")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestCheckRejectsWrongSecret(t *testing.T) {
	minter, err := NewSigner("secret-a", time.Hour)
	require.NoError(t, err)
	checker, err := NewSigner("secret-b", time.Hour)
	require.NoError(t, err)

	signed, _, err := minter.Mint("buyer@example.com", "cs_123")
	require.NoError(t, err)

	_, err = checker.Check(signed)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestCheckRejectsExpiredToken(t *testing.T) {
	signer, err := NewSigner("s3cret", time.Hour)
	require.NoError(t, err)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	signer.WithClock(func() time.Time { return base })

	signed, _, err := signer.Mint("buyer@example.com", "cs_123")
	require.NoError(t, err)

	signer.WithClock(func() time.Time { return base.Add(30 * time.Minute) })
	_, err = signer.Check(signed)
	assert.NoError(t, err)

	signer.WithClock(func() time.Time { return base.Add(2 * time.Hour) })
	_, err = signer.Check(signed)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestNewSignerRequiresSecret(t *testing.T) {
	_, err := NewSigner("   ", time.Hour)
	assert.Error(t, err)
}
