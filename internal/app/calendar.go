package app

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/oauth2"

	"booking-engine/internal/gcal"
	"booking-engine/internal/logging"
)

const oauthStateTTL = 10 * time.Minute

// GoogleOAuth runs the offline-access consent flow that authorises the
// calendar mirror.
type GoogleOAuth struct {
	Config    *oauth2.Config
	TokenFile string
	// OnToken is called after a token has been stored, e.g. to start the mirror.
	OnToken func(ctx context.Context, tok *oauth2.Token)

	states *expirable.LRU[string, struct{}]
}

func NewGoogleOAuth(cfg *oauth2.Config, tokenFile string) *GoogleOAuth {
	if cfg == nil {
		return nil
	}
	return &GoogleOAuth{
		Config:    cfg,
		TokenFile: tokenFile,
		states:    expirable.NewLRU[string, struct{}](256, nil, oauthStateTTL),
	}
}

// GET /api/integrations/google/auth
func (a *App) GoogleAuthHandler(c *gin.Context) {
	if a.Google == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Google Calendar not configured"})
		return
	}
	state := uuid.NewString()
	a.Google.states.Add(state, struct{}{})

	url := a.Google.Config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	c.JSON(http.StatusOK, gin.H{
		"auth_url": url,
		"state":    state,
	})
}

// GET /oauth2callback
func (a *App) GoogleOAuth2CallbackHandler(c *gin.Context) {
	if a.Google == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Google Calendar not configured"})
		return
	}
	code := c.Query("code")
	state := c.Query("state")
	if code == "" {
		badRequest(c, "authorization code required")
		return
	}
	if _, ok := a.Google.states.Get(state); !ok {
		badRequest(c, "unknown or expired state")
		return
	}
	a.Google.states.Remove(state)

	ctx := c.Request.Context()
	logger := logging.FromContext(ctx)
	token, err := a.Google.Config.Exchange(ctx, code)
	if err != nil {
		logger.Warn("gcal.oauth.exchange_failed", "error", err)
		badRequest(c, "failed to exchange code for token")
		return
	}
	if err := gcal.SaveToken(a.Google.TokenFile, token); err != nil {
		a.writeError(c, err)
		return
	}
	logger.Info("gcal.oauth.token_saved", "path", a.Google.TokenFile)
	if a.Google.OnToken != nil {
		a.Google.OnToken(context.WithoutCancel(ctx), token)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Authorization successful"})
}
