package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/sipas/persuratan/internal/config"
	"github.com/sipas/persuratan/internal/database"
	"github.com/sipas/persuratan/internal/models"
	"github.com/sipas/persuratan/internal/testutil"
)

const testNIP = "198501012010011001"

type mockUserStore struct {
	users     map[string]*models.User
	lastLogin map[string]bool
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{users: map[string]*models.User{}, lastLogin: map[string]bool{}}
}

func (m *mockUserStore) add(t *testing.T, id, nip, password string, role models.Role, status models.UserStatus) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	m.users[id] = &models.User{ID: id, NIP: nip, Nama: "Test", Role: role, Status: status, PasswordHash: string(hash)}
}

func (m *mockUserStore) GetByID(_ context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, database.ErrNotFound
}

func (m *mockUserStore) GetByNIP(_ context.Context, nip string) (*models.User, error) {
	for _, u := range m.users {
		if u.NIP == nip {
			return u, nil
		}
	}
	return nil, database.ErrNotFound
}

func (m *mockUserStore) UpdateLastLogin(_ context.Context, id string) error {
	m.lastLogin[id] = true
	return nil
}

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:      "test-secret-key-minimum-32-chars-long",
		JWTIssuer:      "sipas-test",
		JWTAudience:    "sipas-users",
		AccessTokenTTL: 15 * time.Minute,
		BcryptCost:     bcrypt.MinCost,
	}
}

func setupTestAuthService(t *testing.T) (*Service, *mockUserStore) {
	t.Helper()
	store := newMockUserStore()
	store.add(t, "u-1", testNIP, "rahasia123", models.RoleOperator, models.UserStatusActive)
	store.add(t, "u-2", "198501012010011002", "rahasia123", models.RoleAdmin, models.UserStatusDisabled)
	return NewService(store, testAuthConfig(), testutil.NullLogger()), store
}

func TestAuthError(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		message  string
		expected string
	}{
		{
			name:     "invalid_input error",
			code:     "invalid_input",
			message:  "NIP and password are required",
			expected: "NIP and password are required",
		},
		{
			name:     "invalid_credentials error",
			code:     "invalid_credentials",
			message:  "invalid NIP or password",
			expected: "invalid NIP or password",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &AuthError{Code: tt.code, Message: tt.message}
			if err.Error() != tt.expected {
				t.Errorf("AuthError.Error() = %s, want %s", err.Error(), tt.expected)
			}
		})
	}
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name     string
		nip      string
		password string
		wantCode string
	}{
		{"success with spaced NIP", "19850101 201001 1 001", "rahasia123", ""},
		{"wrong password", testNIP, "salah", "invalid_credentials"},
		{"unknown NIP", "199999999999999999", "rahasia123", "invalid_credentials"},
		{"empty input", "", "", "invalid_input"},
		{"disabled account", "198501012010011002", "rahasia123", "account_disabled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, store := setupTestAuthService(t)
			resp, err := service.Login(context.Background(), models.LoginParams{NIP: tt.nip, Password: tt.password})

			if tt.wantCode != "" {
				authErr, ok := err.(*AuthError)
				if !ok {
					t.Fatalf("expected *AuthError, got %v", err)
				}
				if authErr.Code != tt.wantCode {
					t.Errorf("Code = %s, want %s", authErr.Code, tt.wantCode)
				}
				return
			}

			if err != nil {
				t.Fatalf("Login() error = %v", err)
			}
			if resp.Tokens.TokenType != "Bearer" || resp.Tokens.ExpiresIn != 900 {
				t.Errorf("unexpected tokens %+v", resp.Tokens)
			}
			if !store.lastLogin["u-1"] {
				t.Error("expected last login to be updated")
			}

			claims, err := service.ValidateAccessToken(resp.Tokens.AccessToken)
			if err != nil {
				t.Fatalf("ValidateAccessToken() error = %v", err)
			}
			if claims.UserID() != "u-1" || claims.NIP != testNIP || claims.Role != models.RoleOperator {
				t.Errorf("unexpected claims %+v", claims)
			}
		})
	}
}

func TestValidateAccessToken_Invalid(t *testing.T) {
	service, _ := setupTestAuthService(t)

	for _, token := range []string{"", "invalid-token"} {
		if _, err := service.ValidateAccessToken(token); err == nil {
			t.Errorf("Expected error for token %q, got nil", token)
		}
	}
}

func TestValidateAccessToken_Expired(t *testing.T) {
	service, _ := setupTestAuthService(t)
	resp, err := service.Login(context.Background(), models.LoginParams{NIP: testNIP, Password: "rahasia123"})
	if err != nil {
		t.Fatal(err)
	}

	service.now = func() time.Time { return time.Now().Add(time.Hour) }
	if _, err := service.ValidateAccessToken(resp.Tokens.AccessToken); err == nil {
		t.Error("Expected expired token to be rejected")
	}
}

func TestValidateAccessToken_WrongAudience(t *testing.T) {
	service, _ := setupTestAuthService(t)

	claims := &Claims{
		Role: models.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u-1",
			Issuer:    "sipas-test",
			Audience:  jwt.ClaimStrings{"someone-else"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testAuthConfig().JWTSecret))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := service.ValidateAccessToken(signed); err == nil {
		t.Error("Expected token for another audience to be rejected")
	}
}

func TestRequireRole(t *testing.T) {
	service, _ := setupTestAuthService(t)
	mw := NewMiddleware(service)

	login := func(nip string) string {
		resp, err := service.Login(context.Background(), models.LoginParams{NIP: nip, Password: "rahasia123"})
		if err != nil {
			t.Fatal(err)
		}
		return resp.Tokens.AccessToken
	}
	operatorToken := login(testNIP)

	handler := mw.RequireRole(models.RolePimpinan)(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"no token", "", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"role not allowed", "Bearer " + operatorToken, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/reports/surat", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}

	allowed := mw.RequireRole(models.RoleOperator)(func(w http.ResponseWriter, r *http.Request) {
		if GetUserID(r.Context()) != "u-1" {
			t.Errorf("GetUserID() = %q", GetUserID(r.Context()))
		}
		w.WriteHeader(http.StatusNoContent)
	})
	req := httptest.NewRequest(http.MethodGet, "/api/surat?token="+operatorToken, nil)
	rec := httptest.NewRecorder()
	allowed(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
}

func TestHasRole_AdminPassesEverything(t *testing.T) {
	ctx := WithClaims(context.Background(), &Claims{Role: models.RoleAdmin})
	if !HasRole(ctx, models.RolePimpinan) {
		t.Error("admin should pass every role check")
	}
	if HasRole(context.Background(), models.RoleAdmin) {
		t.Error("anonymous context should not pass")
	}
}
