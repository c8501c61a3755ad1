package dto

import (
	"strings"
	"sync/atomic"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// TagNonDisposableEmail rejects addresses whose domain is on the disposable list.
const TagNonDisposableEmail = "non_disposable_email"

var blockedDomains atomic.Pointer[map[string]struct{}]

func init() {
	SetDisposableEmailDomains(nil)
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation(TagNonDisposableEmail, validateNonDisposableEmail)
	}
}

// SetDisposableEmailDomains replaces the blocked domain list. An entry matches
// either the whole domain ("mailinator.com") or its name without the last
// label ("mailinator").
// SetDisposableEmailDomains 替换被屏蔽的一次性邮箱域名列表。
func SetDisposableEmailDomains(domains []string) {
	set := make(map[string]struct{}, len(domains))
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			set[d] = struct{}{}
		}
	}
	blockedDomains.Store(&set)
}

// IsDisposableEmail reports whether email belongs to a blocked domain.
// Values without an '@' are left to the email rule.
func IsDisposableEmail(email string) bool {
	at := strings.LastIndexByte(email, '@')
	if at < 0 {
		return false
	}
	domain := strings.ToLower(email[at+1:])
	set := *blockedDomains.Load()
	if _, ok := set[domain]; ok {
		return true
	}
	if dot := strings.LastIndexByte(domain, '.'); dot > 0 {
		_, ok := set[domain[:dot]]
		return ok
	}
	return false
}

func validateNonDisposableEmail(fl validator.FieldLevel) bool {
	return !IsDisposableEmail(fl.Field().String())
}
