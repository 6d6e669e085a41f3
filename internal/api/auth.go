package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/jonesrussell/north-cloud/article-ingestor/internal/logger"
)

const bearerPrefix = "Bearer "

var errSigningMethod = errors.New("unexpected signing method")

// Claims are the JWT claims accepted on operator routes.
type Claims struct {
	jwt.RegisteredClaims
}

// JWTMiddleware requires an HMAC-signed bearer token and tags the request logger with
// the token subject as "operator". An empty secret disables the check.
func JWTMiddleware(secret string) gin.HandlerFunc {
	if secret == "" {
		return func(c *gin.Context) { c.Next() }
	}
	key := []byte(secret)

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Authentication credentials were not provided."})
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(strings.TrimPrefix(header, bearerPrefix), claims,
			func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, errSigningMethod
				}
				return key, nil
			})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Invalid token."})
			return
		}

		ctx := c.Request.Context()
		scoped := logger.FromContext(ctx, nil).With(logger.String("operator", claims.Subject))
		c.Request = c.Request.WithContext(logger.WithContext(ctx, scoped))

		c.Next()
	}
}
