package jwt_test

import (
	"testing"
	"time"

	"github.com/authwatch/authwatch/pkg/infra/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndValidateToken(t *testing.T) {
	manager := jwt.NewJwtManager("test-secret")

	token, err := manager.CreateToken("ops@example.com", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	assert.NoError(t, manager.ValidateToken(token))
}

func TestDecodeTokenCarriesActor(t *testing.T) {
	manager := jwt.NewJwtManager("test-secret")

	token, err := manager.CreateToken("ops@example.com", time.Hour)
	require.NoError(t, err)

	claims, err := manager.DecodeToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", claims.Actor)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	token, err := jwt.NewJwtManager("secret-a").CreateToken("ops", time.Hour)
	require.NoError(t, err)

	err = jwt.NewJwtManager("secret-b").ValidateToken(token)
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)
}

func TestValidateToken_Expired(t *testing.T) {
	manager := jwt.NewJwtManager("test-secret")

	token, err := manager.CreateToken("ops", -time.Minute)
	require.NoError(t, err)

	err = manager.ValidateToken(token)
	assert.ErrorIs(t, err, jwt.ErrExpiredToken)
}

func TestValidateToken_Garbage(t *testing.T) {
	manager := jwt.NewJwtManager("test-secret")
	assert.ErrorIs(t, manager.ValidateToken("not.a.token"), jwt.ErrInvalidToken)
}
