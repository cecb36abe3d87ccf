package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/yungbote/neurobridge-roadmap/internal/platform/ctxutil"
	"github.com/yungbote/neurobridge-roadmap/internal/platform/logger"
)

// HeaderLearnerID identifies the learner when no JWT secret is configured.
const HeaderLearnerID = "X-Learner-ID"

type AuthMiddleware struct {
	log    *logger.Logger
	secret []byte
}

// NewAuthMiddleware verifies HS256 bearer tokens whose subject is the learner
// id. With an empty secret the learner id is taken from HeaderLearnerID.
func NewAuthMiddleware(log *logger.Logger, secret string) *AuthMiddleware {
	middlewareLogger := log.With("Middleware", "AuthMiddleware")
	secret = strings.TrimSpace(secret)
	if secret == "" {
		middlewareLogger.Warn("JWT_SECRET_KEY not set; trusting " + HeaderLearnerID + " header")
	}
	return &AuthMiddleware{log: middlewareLogger, secret: []byte(secret)}
}

func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		rd, err := am.authenticate(c)
		if err != nil {
			am.log.Debug("Auth rejected", "path", c.Request.URL.Path, "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"message": err.Error(), "code": "unauthorized"},
			})
			return
		}
		c.Request = c.Request.WithContext(ctxutil.WithRequestData(c.Request.Context(), rd))
		c.Next()
	}
}

func (am *AuthMiddleware) authenticate(c *gin.Context) (*ctxutil.RequestData, error) {
	if len(am.secret) == 0 {
		learnerID := strings.TrimSpace(c.GetHeader(HeaderLearnerID))
		if learnerID == "" {
			return nil, errors.New("missing " + HeaderLearnerID + " header")
		}
		return &ctxutil.RequestData{LearnerID: learnerID}, nil
	}
	tokenString := extractTokenFromAll(c)
	if tokenString == "" {
		return nil, errors.New("missing or invalid token")
	}
	learnerID, err := ParseLearnerToken(am.secret, tokenString)
	if err != nil {
		return nil, err
	}
	return &ctxutil.RequestData{LearnerID: learnerID, TokenString: tokenString}, nil
}

// ParseLearnerToken validates an HS256 token and returns its subject.
func ParseLearnerToken(secret []byte, tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	sub := strings.TrimSpace(claims.Subject)
	if sub == "" {
		return "", errors.New("token has no subject")
	}
	return sub, nil
}

// SignLearnerToken issues an HS256 token for learnerID.
func SignLearnerToken(secret []byte, learnerID string, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("secret required")
	}
	if strings.TrimSpace(learnerID) == "" {
		return "", errors.New("learner id required")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   learnerID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})
	return token.SignedString(secret)
}

// extractTokenFromAll also accepts ?token= so EventSource clients can authenticate.
func extractTokenFromAll(c *gin.Context) string {
	if qToken := c.Query("token"); qToken != "" {
		return qToken
	}
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return authHeader[7:]
	}
	return ""
}
