package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const testSecret = "test-secret"

func signToken(t *testing.T, userID uuid.UUID, expiresIn time.Duration) string {
	t.Helper()
	claims := jwt.MapClaims{
		"user_id": userID.String(),
		"exp":     time.Now().Add(expiresIn).Unix(),
		"iat":     time.Now().Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return token
}

func TestJWTMiddleware_ValidTokenAttachesUserID(t *testing.T) {
	auth := NewJWTAuth(testSecret)
	userID := uuid.New()

	var got uuid.UUID
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetUserID(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notes", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, userID, 15*time.Minute))
	rr := httptest.NewRecorder()

	auth.Middleware(next).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if got != userID {
		t.Errorf("expected user ID %s on context, got %s", userID, got)
	}
}

func TestJWTMiddleware_Rejections(t *testing.T) {
	auth := NewJWTAuth(testSecret)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler must not run for a rejected request")
	})

	tests := []struct {
		name     string
		header   string
		wantCode string
	}{
		{"missing header", "", "UNAUTHORIZED"},
		{"not bearer", "Basic abc123", "UNAUTHORIZED"},
		{"garbage token", "Bearer not-a-jwt", "UNAUTHORIZED"},
		{"expired token", "Bearer " + signToken(t, uuid.New(), -time.Minute), "TOKEN_EXPIRED"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/notes", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()

			auth.Middleware(next).ServeHTTP(rr, req)

			if rr.Code != http.StatusUnauthorized {
				t.Fatalf("expected status 401, got %d", rr.Code)
			}

			var body map[string]map[string]interface{}
			if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode error body: %v", err)
			}
			if body["error"]["code"] != tc.wantCode {
				t.Errorf("expected error code %q, got %v", tc.wantCode, body["error"]["code"])
			}
		})
	}
}

func TestJWTMiddleware_RejectsWrongSecret(t *testing.T) {
	auth := NewJWTAuth("a-different-secret")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notes", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, uuid.New(), 15*time.Minute))
	rr := httptest.NewRecorder()

	auth.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("next handler must not run for a forged token")
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rr.Code)
	}
}
