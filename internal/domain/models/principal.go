package models

import (
	"context"
	"fmt"
)

// Principal is the authenticated identity attached to a single request.
// It is created per request from a verified access token and never persisted.
// Principal 是附加到单个请求上的已认证身份，按请求创建，从不持久化。
type Principal struct {
	// Subject is the identifier carried in the token's sub claim.
	Subject string `json:"subject"`
	// Authorities are the role names resolved from the user store at request time.
	// Authorities 是在请求时从用户存储解析出的角色名称。
	Authorities []string `json:"authorities"`
}

// NewPrincipal creates a Principal holding a private copy of authorities.
func NewPrincipal(subject string, authorities []string) *Principal {
	auth := make([]string, len(authorities))
	copy(auth, authorities)
	return &Principal{Subject: subject, Authorities: auth}
}

// HasAuthority reports whether the principal was granted the named authority.
func (p *Principal) HasAuthority(name string) bool {
	if p == nil {
		return false
	}
	for _, a := range p.Authorities {
		if a == name {
			return true
		}
	}
	return false
}

// HasAnyAuthority reports whether the principal holds at least one of names.
func (p *Principal) HasAnyAuthority(names ...string) bool {
	for _, n := range names {
		if p.HasAuthority(n) {
			return true
		}
	}
	return false
}

// String implements fmt.Stringer.
func (p *Principal) String() string {
	if p == nil {
		return "<nil>"
	}
	return fmt.Sprintf("Principal{Subject:%q}", p.Subject)
}

// principalContextKey is the key under which the request-scoped Principal is stored.
type principalContextKey struct{}

// WithPrincipal returns a copy of ctx carrying p. A nil principal leaves ctx unchanged.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	if p == nil {
		return ctx
	}
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext returns the Principal stored in ctx, if any.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	if ctx == nil {
		return nil, false
	}
	p, ok := ctx.Value(principalContextKey{}).(*Principal)
	return p, ok && p != nil
}
