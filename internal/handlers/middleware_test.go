package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func authRouter(secret string) *gin.Engine {
	router := gin.New()
	router.GET("/whoami", AuthRequired(secret, logrus.New()), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": currentUser(c)})
	})
	return router
}

func signToken(t *testing.T, secret, subject, audience string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": subject,
		"aud": audience,
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func whoami(router *gin.Engine, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestAuthWithoutSecretFallsBackToDevUser(t *testing.T) {
	rec := whoami(authRouter(""), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), devUserID)
}

func TestAuthValidToken(t *testing.T) {
	token := signToken(t, testSecret, "user-42", "authenticated")
	rec := whoami(authRouter(testSecret), "Bearer "+token)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "user-42")
}

func TestAuthMissingToken(t *testing.T) {
	rec := whoami(authRouter(testSecret), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthWrongSecret(t *testing.T) {
	token := signToken(t, "a-different-secret", "user-42", "authenticated")
	rec := whoami(authRouter(testSecret), "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthWrongAudience(t *testing.T) {
	token := signToken(t, testSecret, "user-42", "anon")
	rec := whoami(authRouter(testSecret), "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthExpiredToken(t *testing.T) {
	claims := jwt.MapClaims{
		"sub": "user-42",
		"aud": "authenticated",
		"exp": time.Now().Add(-time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	rec := whoami(authRouter(testSecret), "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMissingSubject(t *testing.T) {
	claims := jwt.MapClaims{
		"aud": "authenticated",
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	rec := whoami(authRouter(testSecret), "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
