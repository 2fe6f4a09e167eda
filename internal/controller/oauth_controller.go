package controller

import (
	"net/url"
	"time"

	"ai-studytool-be/internal/dto"
	"ai-studytool-be/internal/pkg/apperror"
	"ai-studytool-be/internal/pkg/logger"
	"ai-studytool-be/internal/pkg/serverutils"
	"ai-studytool-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const oauthStateCookie = "oauth_state"

type IOAuthController interface {
	RegisterRoutes(r fiber.Router)
	Login(ctx *fiber.Ctx) error
	Callback(ctx *fiber.Ctx) error
	SignIn(ctx *fiber.Ctx) error
}

type oauthController struct {
	service   service.IOAuthService
	clientURL string
	secure    bool
	logger    logger.ILogger
}

func NewOAuthController(service service.IOAuthService, clientURL string, secureCookies bool, log logger.ILogger) IOAuthController {
	return &oauthController{service: service, clientURL: clientURL, secure: secureCookies, logger: log}
}

func (c *oauthController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/auth/google")
	h.Get("", c.Login)
	h.Get("/callback", c.Callback)
	h.Post("", c.SignIn)
}

// Login starts the browser redirect flow. The state round-trips through a short-lived cookie.
func (c *oauthController) Login(ctx *fiber.Ctx) error {
	state := uuid.New().String()
	target, err := c.service.GoogleLoginURL(state)
	if err != nil {
		return err
	}

	ctx.Cookie(&fiber.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		Expires:  time.Now().Add(10 * time.Minute),
		HTTPOnly: true,
		Secure:   c.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return ctx.Redirect(target, fiber.StatusTemporaryRedirect)
}

// Callback finishes the redirect flow and sends the browser back to the frontend.
func (c *oauthController) Callback(ctx *fiber.Ctx) error {
	state := ctx.Query("state")
	expected := ctx.Cookies(oauthStateCookie)
	ctx.ClearCookie(oauthStateCookie)

	if state == "" || state != expected {
		c.logger.Warn("OAUTH", "State mismatch on Google callback", map[string]interface{}{"ip": ctx.IP()})
		return c.redirectError(ctx, "invalid_state")
	}
	code := ctx.Query("code")
	if code == "" {
		return c.redirectError(ctx, "missing_code")
	}

	res, err := c.service.GoogleSignIn(ctx.UserContext(), code, ctx.IP(), ctx.Get(fiber.HeaderUserAgent))
	if err != nil {
		reason := "sign_in_failed"
		if appErr, ok := apperror.As(err); ok {
			reason = appErr.Type
		}
		return c.redirectError(ctx, reason)
	}

	q := url.Values{}
	q.Set("token", res.AccessToken)
	q.Set("refresh_token", res.RefreshToken)
	return ctx.Redirect(c.clientURL+"/app?"+q.Encode(), fiber.StatusTemporaryRedirect)
}

// SignIn serves clients that run the Google popup themselves and post back the code.
func (c *oauthController) SignIn(ctx *fiber.Ctx) error {
	var req dto.GoogleSignInRequest
	if err := serverutils.ParseAndValidate(ctx, &req); err != nil {
		return err
	}

	res, err := c.service.GoogleSignIn(ctx.UserContext(), req.Code, ctx.IP(), ctx.Get(fiber.HeaderUserAgent))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Login successful", res))
}

func (c *oauthController) redirectError(ctx *fiber.Ctx, reason string) error {
	return ctx.Redirect(c.clientURL+"/login?error="+url.QueryEscape(reason), fiber.StatusTemporaryRedirect)
}
