package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalamna/auth-api/internal/models"
	"github.com/kalamna/auth-api/pkg/config"
)

func testConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:          "test-secret-key",
		Algorithm:       "HS256",
		Issuer:          "kalamna_services",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
		VerifyTokenTTL:  48 * time.Hour,
	}
}

func TestNewCodecRequiresSecret(t *testing.T) {
	cfg := testConfig()
	cfg.Secret = ""
	_, err := NewCodec(cfg)
	require.Error(t, err)
}

func TestNewCodecRejectsUnknownAlgorithm(t *testing.T) {
	cfg := testConfig()
	cfg.Algorithm = "RS256"
	_, err := NewCodec(cfg)
	require.Error(t, err)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	codec, err := NewCodec(testConfig())
	require.NoError(t, err)

	signed, err := codec.IssueAccess("emp-1", models.RoleOwner)
	require.NoError(t, err)

	claims, err := codec.Decode(signed, AudienceAccess)
	require.NoError(t, err)
	assert.Equal(t, "emp-1", claims.Subject)
	assert.Equal(t, models.RoleOwner, claims.Role)
	assert.Contains(t, claims.Audience, AudienceAccess)
	assert.NotEmpty(t, claims.ID)
}

func TestAccessTokenJTIUniquePerCall(t *testing.T) {
	codec, err := NewCodec(testConfig())
	require.NoError(t, err)

	first, err := codec.IssueAccess("emp-1", models.RoleStaff)
	require.NoError(t, err)
	second, err := codec.IssueAccess("emp-1", models.RoleStaff)
	require.NoError(t, err)

	c1, err := codec.Decode(first, AudienceAccess)
	require.NoError(t, err)
	c2, err := codec.Decode(second, AudienceAccess)
	require.NoError(t, err)
	assert.NotEqual(t, c1.ID, c2.ID)
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	codec, err := NewCodec(testConfig())
	require.NoError(t, err)

	signed, err := codec.IssueRefresh("emp-2")
	require.NoError(t, err)

	claims, err := codec.Decode(signed, AudienceRefresh)
	require.NoError(t, err)
	assert.Equal(t, "emp-2", claims.Subject)
	assert.Empty(t, claims.Role)
	assert.Contains(t, claims.Audience, AudienceRefresh)
}

func TestDecodeWrongAudienceFails(t *testing.T) {
	codec, err := NewCodec(testConfig())
	require.NoError(t, err)

	signed, err := codec.IssueAccess("emp-1", models.RoleOwner)
	require.NoError(t, err)

	_, err = codec.Decode(signed, AudienceRefresh)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestDecodeExpiredToken(t *testing.T) {
	cfg := testConfig()
	cfg.AccessTokenTTL = -time.Minute
	codec, err := NewCodec(cfg)
	require.NoError(t, err)

	signed, err := codec.IssueAccess("emp-1", models.RoleOwner)
	require.NoError(t, err)

	_, err = codec.Decode(signed, AudienceAccess)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestDecodeWrongSecretFails(t *testing.T) {
	codec, err := NewCodec(testConfig())
	require.NoError(t, err)

	other := testConfig()
	other.Secret = "a-different-secret"
	otherCodec, err := NewCodec(other)
	require.NoError(t, err)

	signed, err := codec.IssueRefresh("emp-1")
	require.NoError(t, err)

	_, err = otherCodec.Decode(signed, AudienceRefresh)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestDecodeWrongIssuerFails(t *testing.T) {
	codec, err := NewCodec(testConfig())
	require.NoError(t, err)

	other := testConfig()
	other.Issuer = "someone_else"
	otherCodec, err := NewCodec(other)
	require.NoError(t, err)

	signed, err := otherCodec.IssueAccess("emp-1", models.RoleOwner)
	require.NoError(t, err)

	_, err = codec.Decode(signed, AudienceAccess)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestDecodeMalformedToken(t *testing.T) {
	codec, err := NewCodec(testConfig())
	require.NoError(t, err)

	_, err = codec.Decode("not.a.token", AudienceAccess)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestVerificationTokenRoundTrip(t *testing.T) {
	codec, err := NewCodec(testConfig())
	require.NoError(t, err)

	signed, err := codec.IssueVerification("emp-3")
	require.NoError(t, err)

	claims, err := codec.Decode(signed, AudienceVerify)
	require.NoError(t, err)
	assert.Equal(t, "emp-3", claims.Subject)

	_, err = codec.Decode(signed, AudienceAccess)
	assert.ErrorIs(t, err, ErrInvalid)
}
