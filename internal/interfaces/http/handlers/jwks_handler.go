package handlers

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"

	"github.com/turtacn/tokengate/internal/infrastructure/crypto"
	"github.com/turtacn/tokengate/pkg/errors"
)

// JWKSHandler publishes the verification key as a JSON Web Key Set.
type JWKSHandler struct {
	body []byte
	etag string
}

// NewJWKSHandler renders the key set once; the key pair never changes after load.
func NewJWKSHandler(keys *crypto.KeyPair) (*JWKSHandler, error) {
	kid, err := keys.KeyID()
	if err != nil {
		return nil, err
	}

	key, err := jwk.FromRaw(keys.PublicKey)
	if err != nil {
		return nil, errors.ErrKeyLoad.WithMessage("failed to build JWK").WithError(err)
	}
	for name, value := range map[string]interface{}{
		jwk.KeyIDKey:     kid,
		jwk.KeyUsageKey:  jwk.ForSignature,
		jwk.AlgorithmKey: jwa.RS256,
	} {
		if err := key.Set(name, value); err != nil {
			return nil, errors.ErrKeyLoad.WithMessage("failed to set JWK %s", name).WithError(err)
		}
	}

	set := jwk.NewSet()
	if err := set.AddKey(key); err != nil {
		return nil, errors.ErrKeyLoad.WithError(err)
	}
	body, err := json.Marshal(set)
	if err != nil {
		return nil, errors.ErrKeyLoad.WithError(err)
	}
	sum := sha256.Sum256(body)
	return &JWKSHandler{body: body, etag: `"` + base64.RawURLEncoding.EncodeToString(sum[:]) + `"`}, nil
}

// GetJWKS writes the key set, or 304 when the client already holds it.
func (h *JWKSHandler) GetJWKS(c *gin.Context) {
	c.Header("Cache-Control", "public, max-age=3600")
	c.Header("ETag", h.etag)
	if c.GetHeader("If-None-Match") == h.etag {
		c.Status(http.StatusNotModified)
		return
	}
	c.Data(http.StatusOK, "application/json", h.body)
}
