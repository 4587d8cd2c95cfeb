package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/emesedutech/cbt-akm/internal/config"
	"github.com/emesedutech/cbt-akm/internal/service"
)

const testSecret = "jwt-test-secret"

func signTestToken(t *testing.T, tokenType service.TokenType, expiresAt time.Time) string {
	t.Helper()
	claims := service.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "test-jti",
			Subject:   strconv.Itoa(7),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		TokenType: tokenType,
		UserID:    7,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("signing test token: %v", err)
	}
	return signed
}

func jwtTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	authService := service.NewAuthService(&config.Config{JWTSecret: testSecret}, nil)

	r := gin.New()
	r.GET("/protected", RequireStudentJWT(authService), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestRequireStudentJWTExpiredTokenCode(t *testing.T) {
	r := jwtTestRouter()

	token := signTestToken(t, service.TokenTypeStudent, time.Now().Add(-time.Hour))
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if !strings.Contains(w.Body.String(), "TOKEN_EXPIRED") {
		t.Fatalf("body = %s, want TOKEN_EXPIRED code", w.Body.String())
	}
}

func TestRequireStudentJWTGarbageTokenCode(t *testing.T) {
	r := jwtTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if !strings.Contains(w.Body.String(), "TOKEN_INVALID") {
		t.Fatalf("body = %s, want TOKEN_INVALID code", w.Body.String())
	}
}

func TestRequireStudentJWTValidToken(t *testing.T) {
	r := jwtTestRouter()

	token := signTestToken(t, service.TokenTypeStudent, time.Now().Add(time.Hour))
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body: %s)", w.Code, http.StatusOK, w.Body.String())
	}
}
