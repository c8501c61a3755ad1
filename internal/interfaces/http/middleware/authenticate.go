// Package middleware holds the gin stages that establish and enforce the
// authenticated principal of a request.
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/tokengate/internal/domain/models"
	"github.com/turtacn/tokengate/internal/domain/service"
	"github.com/turtacn/tokengate/pkg/constants"
	"github.com/turtacn/tokengate/pkg/errors"
	"github.com/turtacn/tokengate/pkg/logger"
)

// Authenticate is the single verification checkpoint for inbound requests.
// It attaches a Principal to the request context when the bearer token is
// valid for a known user, and otherwise lets the request continue
// anonymously. It never writes a response; rejection is left to the
// authorization stages.
// Authenticate 是入站请求的唯一校验点：令牌有效时附加 Principal，否则以匿名身份继续。
func Authenticate(tokens service.TokenService, users service.UserLookup, publicPaths PathMatcher, log logger.Logger) gin.HandlerFunc {
	if log == nil {
		log = logger.NewNoopLogger()
	}
	return func(c *gin.Context) {
		if publicPaths.Match(c.Request.URL.Path) {
			c.Next()
			return
		}

		token, ok := bearerToken(c.GetHeader(constants.HeaderAuthorization))
		if !ok {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		subject, err := tokens.ExtractSubject(ctx, token)
		if err != nil {
			log.Debug(ctx, "Bearer token rejected", logger.Fields{
				"path":  c.Request.URL.Path,
				"error": err.Error(),
			})
			c.Next()
			return
		}

		if _, already := models.PrincipalFromContext(ctx); already {
			c.Next()
			return
		}

		creds, err := users.FindByEmail(ctx, subject)
		if err != nil {
			if errors.Is(err, errors.ErrUserNotFound) {
				log.Warn(ctx, "Token subject has no account", logger.Fields{"subject": subject})
			} else {
				log.Error(ctx, "User lookup failed during authentication", err, logger.Fields{"subject": subject})
			}
			c.Next()
			return
		}

		valid, err := tokens.IsTokenValid(ctx, token, creds.Subject)
		if err != nil || !valid {
			log.Debug(ctx, "Bearer token not valid for subject", logger.Fields{"subject": subject})
			c.Next()
			return
		}

		principal := models.NewPrincipal(creds.Subject, creds.Authorities)
		c.Request = c.Request.WithContext(models.WithPrincipal(ctx, principal))
		c.Set(constants.ContextKeyPrincipal, principal)
		c.Next()
	}
}

// bearerToken strips the "Bearer " scheme from an Authorization header value.
func bearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, constants.BearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(constants.BearerPrefix):])
	return token, token != ""
}

// PrincipalFrom returns the principal attached by Authenticate.
func PrincipalFrom(c *gin.Context) (*models.Principal, bool) {
	return models.PrincipalFromContext(c.Request.Context())
}
