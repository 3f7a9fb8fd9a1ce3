package jwt

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "test-access-secret-key-for-testing-purposes"
	testIssuer = "proyecto-flota"
)

func TestNewService(t *testing.T) {
	service := NewService(testSecret, testIssuer, time.Hour)

	assert.NotNil(t, service)
	assert.Equal(t, testSecret, service.secret)
	assert.Equal(t, testIssuer, service.issuer)
	assert.Equal(t, time.Hour, service.AccessTokenExpiry())
}

func TestGenerateAccessToken(t *testing.T) {
	service := NewService(testSecret, testIssuer, time.Hour)
	roles := []string{"operator"}

	token, err := service.GenerateAccessToken("ops@example.cl", "Operaciones", roles)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	// Validate the generated token
	claims, err := service.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ops@example.cl", claims.Subject)
	assert.Equal(t, "Operaciones", claims.Name)
	assert.Equal(t, roles, claims.Roles)
	assert.Equal(t, testIssuer, claims.Issuer)
}

func TestValidateAccessToken(t *testing.T) {
	service := NewService(testSecret, testIssuer, time.Hour)

	token, err := service.GenerateAccessToken("ops", "Ops", []string{"operator", "admin"})
	require.NoError(t, err)

	t.Run("Invalid token", func(t *testing.T) {
		_, err := service.ValidateAccessToken("invalid.token.here")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("Wrong secret", func(t *testing.T) {
		wrongService := NewService("wrong-secret", testIssuer, time.Hour)
		_, err := wrongService.ValidateAccessToken(token)
		assert.Error(t, err)
	})

	t.Run("Wrong issuer", func(t *testing.T) {
		otherIssuer := NewService(testSecret, "someone-else", time.Hour)
		_, err := otherIssuer.ValidateAccessToken(token)
		assert.Error(t, err)
	})

	t.Run("Missing subject", func(t *testing.T) {
		noSubject, err := service.GenerateAccessToken("", "Ops", nil)
		require.NoError(t, err)
		_, err = service.ValidateAccessToken(noSubject)
		assert.Error(t, err)
	})
}

func TestExpiredToken(t *testing.T) {
	service := NewService(testSecret, testIssuer, -time.Minute)

	token, err := service.GenerateAccessToken("ops", "Ops", []string{"operator"})
	require.NoError(t, err)

	_, err = service.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenSigningMethod(t *testing.T) {
	service := NewService(testSecret, testIssuer, time.Hour)

	token, err := service.GenerateAccessToken("ops", "Ops", []string{"operator"})
	require.NoError(t, err)

	parsedToken, err := jwt.ParseWithClaims(token, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	require.NoError(t, err)

	_, ok := parsedToken.Method.(*jwt.SigningMethodHMAC)
	assert.True(t, ok, "Token should use HMAC signing method")
}

func TestClaimsHasRole(t *testing.T) {
	claims := &Claims{Roles: []string{"operator", "admin"}}

	assert.True(t, claims.HasRole("admin"))
	assert.True(t, claims.HasRole("auditor", "operator"))
	assert.False(t, claims.HasRole("auditor"))
	assert.False(t, (&Claims{}).HasRole("admin"))
}

func TestConcurrentTokenGeneration(t *testing.T) {
	service := NewService(testSecret, testIssuer, time.Hour)

	var wg sync.WaitGroup
	errs := make(chan error, 100)

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			token, err := service.GenerateAccessToken(fmt.Sprintf("user-%d", i), "Ops", []string{"operator"})
			if err != nil {
				errs <- err
				return
			}
			if _, err := service.ValidateAccessToken(token); err != nil {
				errs <- err
			}
		}(i)
	}

	wg.Wait()
	close(errs)
	assert.Empty(t, errs)
}
