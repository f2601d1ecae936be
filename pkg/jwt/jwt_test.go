package jwt

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_GenerateAndVerify(t *testing.T) {
	m := NewManager("test-secret", "teleconsult", time.Hour)
	userID := uuid.New()

	token, err := m.Generate(userID, "responder")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, "responder", claims.Role)
	assert.Equal(t, "teleconsult", claims.Issuer)
}

func TestManager_VerifyRejectsWrongSecret(t *testing.T) {
	m := NewManager("secret-a", "teleconsult", time.Hour)
	token, err := m.Generate(uuid.New(), "requester")
	require.NoError(t, err)

	other := NewManager("secret-b", "teleconsult", time.Hour)
	_, err = other.Verify(token)
	assert.Error(t, err)
}

func TestManager_VerifyRejectsWrongIssuer(t *testing.T) {
	m := NewManager("test-secret", "someone-else", time.Hour)
	token, err := m.Generate(uuid.New(), "requester")
	require.NoError(t, err)

	verifier := NewManager("test-secret", "teleconsult", time.Hour)
	_, err = verifier.Verify(token)
	assert.Error(t, err)
}

func TestManager_VerifyRejectsExpired(t *testing.T) {
	m := NewManager("test-secret", "teleconsult", -time.Minute)
	token, err := m.Generate(uuid.New(), "requester")
	require.NoError(t, err)

	_, err = m.Verify(token)
	assert.Error(t, err)
}
