package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yungbote/fincoach-backend/internal/logger"
	"github.com/yungbote/fincoach-backend/internal/repos"
	"github.com/yungbote/fincoach-backend/internal/requestdata"
	"github.com/yungbote/fincoach-backend/internal/utils"
)

// AuthMiddleware verifies the identity provider's bearer token and binds
// the resolved user to the request context. Users are created on first
// sight of a new subject; there is no local credential store.
type AuthMiddleware struct {
	log    *logger.Logger
	users  repos.UserRepo
	secret []byte
}

func NewAuthMiddleware(log *logger.Logger, users repos.UserRepo) *AuthMiddleware {
	middlewareLogger := log.With("Middleware", "AuthMiddleware")
	secret := utils.GetEnv("IDENTITY_JWT_SECRET", "", middlewareLogger)
	if secret == "" {
		middlewareLogger.Warn("IDENTITY_JWT_SECRET not set, all authenticated routes will reject")
	}
	return &AuthMiddleware{log: middlewareLogger, users: users, secret: []byte(secret)}
}

func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
			return
		}
		ctx, err := am.setContextFromToken(c.Request.Context(), tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Request = c.Request.WithContext(ctx)
		rd := requestdata.GetRequestData(ctx)
		if rd == nil || rd.UserID == uuid.Nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

func (am *AuthMiddleware) setContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	if len(am.secret) == 0 {
		return nil, fmt.Errorf("identity secret not configured")
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return am.secret, nil
	})
	if err != nil {
		return nil, err
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return nil, fmt.Errorf("token has no subject")
	}
	email, _ := claims["email"].(string)

	user, err := am.users.GetOrCreateBySubject(ctx, nil, subject, email)
	if err != nil {
		return nil, err
	}

	rd := &requestdata.RequestData{
		TokenString: tokenString,
		Subject:     subject,
		UserID:      user.ID,
	}
	return requestdata.WithRequestData(ctx, rd), nil
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return authHeader[7:]
	}
	if qToken := c.Query("token"); qToken != "" {
		return qToken
	}
	return ""
}
