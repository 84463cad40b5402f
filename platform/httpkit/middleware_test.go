package httpkit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const testSecret = "test-secret"

type jwtConfig struct{}

func (jwtConfig) GetJWTAccessSecret() string { return testSecret }

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

type identityHolder struct {
	identity Identity
}

func newAuthRouter() (*gin.Engine, *identityHolder) {
	gin.SetMode(gin.TestMode)
	seen := &identityHolder{}
	r := gin.New()
	r.GET("/me", AuthRequired(jwtConfig{}), func(c *gin.Context) {
		seen.identity = MustGetIdentity(c)
		c.Status(http.StatusNoContent)
	})
	return r, seen
}

func doGet(r http.Handler, path, authHeader string) int {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestAuthRequiredAcceptsAccessToken(t *testing.T) {
	r, seen := newAuthRouter()
	userID, tenantID := uuid.New(), uuid.New()
	token := signToken(t, jwt.MapClaims{
		"sub":       userID.String(),
		"type":      "access",
		"roles":     []string{"admin"},
		"tenant_id": tenantID.String(),
		"exp":       time.Now().Add(time.Hour).Unix(),
	})

	if code := doGet(r, "/me", "Bearer "+token); code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", code)
	}
	if seen.identity.UserID() != userID {
		t.Fatalf("expected user %s, got %s", userID, seen.identity.UserID())
	}
	if tid := seen.identity.TenantID(); tid == nil || *tid != tenantID {
		t.Fatalf("expected tenant %s, got %v", tenantID, tid)
	}
}

func TestAuthRequiredRejectsBadTokens(t *testing.T) {
	r, _ := newAuthRouter()
	refresh := signToken(t, jwt.MapClaims{"sub": uuid.NewString(), "type": "refresh"})
	expired := signToken(t, jwt.MapClaims{"sub": uuid.NewString(), "type": "access", "exp": time.Now().Add(-time.Hour).Unix()})
	badTenant := signToken(t, jwt.MapClaims{"sub": uuid.NewString(), "type": "access", "tenant_id": "nope"})

	for name, header := range map[string]string{
		"missing":    "",
		"not bearer": "Token abc",
		"garbage":    "Bearer abc",
		"refresh":    "Bearer " + refresh,
		"expired":    "Bearer " + expired,
		"bad tenant": "Bearer " + badTenant,
	} {
		if code := doGet(r, "/me", header); code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", name, code)
		}
	}
}

func TestWebhookRateLimiterLimitsPerIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/hook", NewWebhookRateLimiter(0.001, 2, nil).RateLimit(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for i := 0; i < 2; i++ {
		if code := doGet(r, "/hook", ""); code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, code)
		}
	}
	req := httptest.NewRequest(http.MethodGet, "/hook", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") != "1000" {
		t.Fatalf("expected Retry-After 1000, got %q", w.Header().Get("Retry-After"))
	}
}

func TestWebhookRateLimiterEvictsIdleSources(t *testing.T) {
	limiter := NewWebhookRateLimiter(1, 1, nil)
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return clock }

	limiter.limiterFor("10.0.0.1")
	limiter.limiterFor("10.0.0.2")
	if limiter.tracked() != 2 {
		t.Fatalf("expected 2 tracked sources, got %d", limiter.tracked())
	}

	clock = clock.Add(limiterIdleTTL)
	limiter.limiterFor("10.0.0.3")
	if limiter.tracked() != 1 {
		t.Fatalf("expected idle sources evicted, got %d tracked", limiter.tracked())
	}
}

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	for _, tc := range []struct {
		roles []string
		want  int
	}{
		{[]string{"admin"}, http.StatusNoContent},
		{[]string{"sales"}, http.StatusForbidden},
		{nil, http.StatusForbidden},
	} {
		r := gin.New()
		r.GET("/admin", func(c *gin.Context) {
			if tc.roles != nil {
				c.Set(ContextRolesKey, tc.roles)
			}
			c.Next()
		}, RequireRole("admin"), func(c *gin.Context) {
			c.Status(http.StatusNoContent)
		})

		if code := doGet(r, "/admin", ""); code != tc.want {
			t.Fatalf("roles %v: expected %d, got %d", tc.roles, tc.want, code)
		}
	}
}
