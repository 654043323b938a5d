package app

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const principalKey = "principal"

// Principal is the authenticated caller of the internal API. An empty
// OrganizationID (static tokens) may act on every organization.
type Principal struct {
	Subject        string
	OrganizationID string
}

// AuthMiddleware accepts HMAC signed JWTs or static bearer tokens.
func AuthMiddleware(jwtSecret string, staticTokens []string) gin.HandlerFunc {
	jwtSecret = strings.TrimSpace(jwtSecret)
	var tokens []string
	for _, t := range staticTokens {
		if t = strings.TrimSpace(t); t != "" {
			tokens = append(tokens, t)
		}
	}

	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}
		parts := strings.Fields(auth)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		tokenStr := parts[1]

		if jwtSecret != "" {
			claims := jwt.MapClaims{}
			_, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrTokenMalformed
				}
				return []byte(jwtSecret), nil
			}, jwt.WithLeeway(5*time.Second))
			if err == nil {
				p := Principal{}
				p.Subject, _ = claims.GetSubject()
				p.OrganizationID, _ = claims["org_id"].(string)
				c.Set(principalKey, p)
				c.Next()
				return
			}
		}

		for _, t := range tokens {
			if subtle.ConstantTimeCompare([]byte(tokenStr), []byte(t)) == 1 {
				c.Set(principalKey, Principal{Subject: "static"})
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
	}
}

func principalFrom(c *gin.Context) Principal {
	p, _ := c.Get(principalKey)
	principal, _ := p.(Principal)
	return principal
}

// canAccess reports whether the caller may see resources of organizationID.
func canAccess(c *gin.Context, organizationID string) bool {
	p := principalFrom(c)
	return p.OrganizationID == "" || p.OrganizationID == organizationID
}
