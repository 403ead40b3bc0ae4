package jwtutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shubhmrj/Sellium/pkg/config"
)

func TestGenerateAndValidateToken(t *testing.T) {
	Initialize(&config.JWTConfig{SigningKey: "test_signing_key", ExpirationTime: time.Hour})

	token, err := GenerateToken(42, "buyer@example.com", "buyer")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "buyer@example.com", claims.Email)
	assert.Equal(t, "buyer", claims.Role)
	assert.True(t, claims.ExpiresAt.After(time.Now()))
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	Initialize(&config.JWTConfig{SigningKey: "test_signing_key", ExpirationTime: time.Hour})

	_, err := ValidateToken("not.a.token")
	assert.Error(t, err)

	_, err = ValidateToken("")
	assert.Error(t, err)
}

func TestValidateTokenRejectsWrongKey(t *testing.T) {
	Initialize(&config.JWTConfig{SigningKey: "first_key", ExpirationTime: time.Hour})
	token, err := GenerateToken(1, "a@example.com", "supplier")
	require.NoError(t, err)

	Initialize(&config.JWTConfig{SigningKey: "second_key", ExpirationTime: time.Hour})
	_, err = ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	Initialize(&config.JWTConfig{SigningKey: "test_signing_key", ExpirationTime: -time.Minute})
	token, err := GenerateToken(1, "a@example.com", "buyer")
	require.NoError(t, err)

	_, err = ValidateToken(token)
	assert.Error(t, err)
}
