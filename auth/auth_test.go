package auth

import (
	"net/http"
	"net/http/httptest"
	"roomchat/domain"
	"roomchat/errors"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestHashAndCompare(t *testing.T) {
	req := require.New(t)
	password := "MyPassw0rdIsStrong!"

	hash, err := HashPassword(password)
	req.NoError(err)
	req.True(strings.HasPrefix(hash, "$argon2id$"))

	match, err := ComparePassword(password, hash)
	req.NoError(err)
	req.True(match)

	match, err = ComparePassword("WrongPassword", hash)
	req.NoError(err)
	req.False(match)
}

func TestComparePassword_Malformed_Hash(t *testing.T) {
	req := require.New(t)

	_, err := ComparePassword("whatever", "not-a-hash")
	req.Error(err)

	_, err = ComparePassword("whatever", "$bcrypt$v=19$m=1,t=1,p=1$abc$def")
	req.Error(err)
}

func TestRegistrationValidation(t *testing.T) {
	tests := []struct {
		name    string
		req     RegisterRequest
		wantErr bool
	}{
		{"Valid request", RegisterRequest{"alice", "ComplexPass123!"}, false},
		{"Username too short", RegisterRequest{"al", "ComplexPass123!"}, true},
		{"Username with spaces", RegisterRequest{"alice smith", "ComplexPass123!"}, true},
		{"Password too short", RegisterRequest{"alice", "Short1!"}, true},
		{"Missing digit", RegisterRequest{"alice", "NoDigitPass!"}, true},
		{"Missing special char", RegisterRequest{"alice", "NoSpecialChar123"}, true},
		{"Missing uppercase", RegisterRequest{"alice", "nouppercase123!"}, true},
		{"Password too long", RegisterRequest{"alice", strings.Repeat("a", 73)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			err := ValidateRegister(tt.req)
			if tt.wantErr {
				req.Error(err)
			} else {
				req.NoError(err)
			}
		})
	}
}

func TestValidateColor(t *testing.T) {
	req := require.New(t)

	req.NoError(ValidateColor("#ff0000"))
	req.NoError(ValidateColor("#FFF"))
	req.ErrorIs(ValidateColor("red"), errors.ErrInvalidContent)
	req.ErrorIs(ValidateColor(""), errors.ErrInvalidContent)
	req.ErrorIs(ValidateColor("#gg0000"), errors.ErrInvalidContent)
}

func TestValidateContentLength_Counts_Runes(t *testing.T) {
	req := require.New(t)

	// Given 5 runes spanning 10 bytes
	content := "ééééé"

	req.NoError(ValidateContentLength(content, 5))
	req.ErrorIs(ValidateContentLength(content, 4), errors.ErrInvalidContent)
}

func TestTokens_RoundTrip(t *testing.T) {
	req := require.New(t)
	tokens := NewTokens("test-secret", time.Hour)

	token, err := tokens.GenerateToken(domain.UserID(42), "alice")
	req.NoError(err)

	claims, err := tokens.ValidateToken(token)
	req.NoError(err)
	req.Equal(int64(42), claims.UserID)
	req.Equal("alice", claims.Username)
}

func TestTokens_Rejects_Foreign_Signature(t *testing.T) {
	req := require.New(t)

	token, err := NewTokens("secret-a", time.Hour).GenerateToken(1, "alice")
	req.NoError(err)

	_, err = NewTokens("secret-b", time.Hour).ValidateToken(token)
	req.ErrorIs(err, errors.ErrInvalidToken)
}

func TestTokens_Rejects_Expired(t *testing.T) {
	req := require.New(t)
	tokens := NewTokens("test-secret", time.Minute)
	issuedAt := time.Now().Add(-time.Hour)
	tokens.now = func() time.Time { return issuedAt }

	token, err := tokens.GenerateToken(1, "alice")
	req.NoError(err)

	tokens.now = time.Now
	_, err = tokens.ValidateToken(token)
	req.ErrorIs(err, errors.ErrInvalidToken)
}

func TestRequireToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens := NewTokens("test-secret", time.Hour)
	valid, err := tokens.GenerateToken(7, "bob")
	require.NoError(t, err)

	router := gin.New()
	router.GET("/me", RequireToken(tokens), func(c *gin.Context) {
		userID, _ := UserID(c)
		c.JSON(http.StatusOK, gin.H{"user_id": userID})
	})

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"not a bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer abc", http.StatusUnauthorized},
		{"valid token", "Bearer " + valid, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			request := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				request.Header.Set("Authorization", tt.header)
			}
			recorder := httptest.NewRecorder()

			router.ServeHTTP(recorder, request)

			req.Equal(tt.status, recorder.Code)
			if tt.status == http.StatusOK {
				req.JSONEq(`{"user_id":7}`, recorder.Body.String())
			}
		})
	}
}
