package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/plinko/internal/config"
)

func newAuthRouter(cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/paths", AdminAuthMiddleware(cfg), RequireRole("recorder"), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("admin_username"))
	})
	return r
}

func TestAdminAuth(t *testing.T) {
	cfg := &config.Config{JWTSecret: "test-secret", SessionTimeoutMin: 5}
	r := newAuthRouter(cfg)

	recorder, _, err := IssueAdminToken(cfg, "ops", []string{"recorder"})
	if err != nil {
		t.Fatal(err)
	}
	viewer, _, _ := IssueAdminToken(cfg, "viewer", []string{"viewer"})
	other, _, _ := IssueAdminToken(&config.Config{JWTSecret: "other", SessionTimeoutMin: 5}, "ops", []string{"recorder"})
	expired, _, _ := IssueAdminToken(&config.Config{JWTSecret: "test-secret", SessionTimeoutMin: -1}, "ops", []string{"recorder"})

	cases := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{"no token", "", "", http.StatusUnauthorized},
		{"valid", "Bearer " + recorder, "", http.StatusOK},
		{"query token", "", "?token=" + recorder, http.StatusOK},
		{"wrong role", "Bearer " + viewer, "", http.StatusForbidden},
		{"wrong secret", "Bearer " + other, "", http.StatusUnauthorized},
		{"expired", "Bearer " + expired, "", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/paths"+tc.query, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Errorf("status %d, want %d", w.Code, tc.want)
			}
			if tc.want == http.StatusOK && w.Body.String() != "ops" {
				t.Errorf("username %q", w.Body.String())
			}
		})
	}
}

func TestWebSocketCORSCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{Environment: "production", FrontendURL: "https://boards.example.com"}
	r := gin.New()
	r.GET("/ws", WebSocketCORSCheck(cfg), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	cases := map[string]int{
		"https://boards.example.com":    http.StatusNoContent,
		"https://plinko.playmatatu.com": http.StatusNoContent,
		"https://evil.example.com":      http.StatusForbidden,
		"":                              http.StatusBadRequest,
	}
	for origin, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/ws", nil)
		req.Header.Set("Connection", "Upgrade")
		req.Header.Set("Upgrade", "websocket")
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != want {
			t.Errorf("origin %q: status %d, want %d", origin, w.Code, want)
		}
	}
}
