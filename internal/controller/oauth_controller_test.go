package controller

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"ai-studytool-be/internal/dto"
	"ai-studytool-be/internal/pkg/apperror"
	"ai-studytool-be/internal/pkg/logger"
	"ai-studytool-be/internal/pkg/serverutils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubOAuthService struct {
	codes map[string]*dto.LoginResponse
}

func (s *stubOAuthService) GoogleLoginURL(state string) (string, error) {
	return "https://accounts.google.test/auth?state=" + state, nil
}

func (s *stubOAuthService) GoogleSignIn(ctx context.Context, code, ipAddress, userAgent string) (*dto.LoginResponse, error) {
	if res, ok := s.codes[code]; ok {
		return res, nil
	}
	return nil, apperror.Unauthorized("Google sign-in failed")
}

func newOAuthApp() *fiber.App {
	svc := &stubOAuthService{codes: map[string]*dto.LoginResponse{
		"good": {AccessToken: "access-1", RefreshToken: "refresh-1"},
	}}
	app := fiber.New(fiber.Config{ErrorHandler: serverutils.WriteError})
	NewOAuthController(svc, "http://front.test", false, logger.NewNopLogger()).RegisterRoutes(app.Group("/api"))
	return app
}

func TestGoogleLoginSetsStateCookie(t *testing.T) {
	app := newOAuthApp()

	resp, err := app.Test(httptest.NewRequest("GET", "/api/auth/google", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)

	var state string
	for _, c := range resp.Cookies() {
		if c.Name == oauthStateCookie {
			state = c.Value
		}
	}
	require.NotEmpty(t, state)
	assert.Equal(t, "https://accounts.google.test/auth?state="+state, resp.Header.Get("Location"))
}

func TestGoogleCallback(t *testing.T) {
	app := newOAuthApp()

	callback := func(state, cookie, code string) *http.Response {
		req := httptest.NewRequest("GET", "/api/auth/google/callback?state="+state+"&code="+code, nil)
		if cookie != "" {
			req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: cookie})
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp
	}

	resp := callback("s1", "s1", "good")
	assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/app", loc.Path)
	assert.Equal(t, "access-1", loc.Query().Get("token"))
	assert.Equal(t, "refresh-1", loc.Query().Get("refresh_token"))

	resp = callback("s1", "other", "good")
	assert.Equal(t, "http://front.test/login?error=invalid_state", resp.Header.Get("Location"))

	resp = callback("s1", "", "good")
	assert.Equal(t, "http://front.test/login?error=invalid_state", resp.Header.Get("Location"))

	resp = callback("s1", "s1", "bad")
	assert.Equal(t, "http://front.test/login?error=unauthorized", resp.Header.Get("Location"))
}

func TestGoogleSignInWithPostedCode(t *testing.T) {
	app := newOAuthApp()

	req := httptest.NewRequest("POST", "/api/auth/google", strings.NewReader(`{"code":"bad"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest("POST", "/api/auth/google", strings.NewReader(`{"code":"good"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
