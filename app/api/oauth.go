package api

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/gecanews/newswatch/app/subscription"
)

const oauthStateCookie = "oauth_state"

// OAuthHandler implements the trusted sign-in activation path: a verified
// email from the provider substitutes for the email-ownership proof, so
// the subscriber skips straight to active.
type OAuthHandler struct {
	config  *oauth2.Config
	service *subscription.Service
}

func NewOAuthHandler(clientID, clientSecret, redirectURL string, service *subscription.Service) *OAuthHandler {
	return &OAuthHandler{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email"},
			Endpoint:     google.Endpoint,
		},
		service: service,
	}
}

func (h *OAuthHandler) GetLogin(c *gin.Context) {
	state, err := randomState()
	if err != nil {
		slog.Error("Failed to generate OAuth state", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.SetCookie(oauthStateCookie, state, 600, "/", "", false, true)
	c.Redirect(http.StatusFound, h.config.AuthCodeURL(state))
}

func (h *OAuthHandler) GetCallback(c *gin.Context) {
	expectedState, err := c.Cookie(oauthStateCookie)
	if err != nil || expectedState == "" || c.Query("state") != expectedState {
		c.String(http.StatusBadRequest, "Invalid sign-in state")
		return
	}

	code := c.Query("code")
	if code == "" {
		c.String(http.StatusBadRequest, "Missing authorization code")
		return
	}

	tok, err := h.config.Exchange(c.Request.Context(), code)
	if err != nil {
		slog.Error("OAuth code exchange failed", "error", err)
		c.String(http.StatusBadGateway, "Sign-in failed, please try again")
		return
	}

	email, err := h.fetchVerifiedEmail(c, tok)
	if err != nil {
		slog.Error("Failed to fetch verified email from provider", "error", err)
		c.String(http.StatusBadGateway, "Sign-in failed, please try again")
		return
	}

	err = h.service.ActivateVerified(c.Request.Context(), email)
	switch {
	case err == nil:
		c.String(http.StatusOK, "Subscription confirmed. Welcome to GECA News Updates!")
	case errors.Is(err, subscription.ErrAlreadySubscribed):
		c.String(http.StatusOK, "Already subscribed")
	default:
		slog.Error("Sign-in activation failed", "error", err)
		c.String(http.StatusInternalServerError, "Subscription failed, please try again later")
	}
}

func (h *OAuthHandler) fetchVerifiedEmail(c *gin.Context, tok *oauth2.Token) (string, error) {
	client := h.config.Client(c.Request.Context(), tok)

	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return "", fmt.Errorf("userinfo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("userinfo request returned %d", resp.StatusCode)
	}

	var info struct {
		Email         string `json:"email"`
		VerifiedEmail bool   `json:"verified_email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("failed to decode userinfo: %w", err)
	}

	if info.Email == "" || !info.VerifiedEmail {
		return "", fmt.Errorf("provider did not supply a verified email")
	}

	return info.Email, nil
}

func randomState() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
