package dto

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsDisposableEmail(t *testing.T) {
	SetDisposableEmailDomains([]string{"Mailinator", "trashmail.net", " "})
	t.Cleanup(func() { SetDisposableEmailDomains(nil) })

	tests := []struct {
		email string
		want  bool
	}{
		{"bob@mailinator.com", true},
		{"bob@MAILINATOR.org", true},
		{"bob@trashmail.net", true},
		{"bob@trashmail.com", false},
		{"bob@example.com", false},
		{"bob@sub.mailinator.com", false},
		{"no-at-sign", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsDisposableEmail(tt.email), tt.email)
	}
}

func TestRegisterRequest_DisposableEmail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	SetDisposableEmailDomains([]string{"mailinator"})
	t.Cleanup(func() { SetDisposableEmailDomains(nil) })

	bind := func(email string) error {
		body := `{"first_name":"Bob","last_name":"Smith","email":"` + email + `","phone_number":"+15550101",` +
			`"password":"s3cret-pass","confirm_password":"s3cret-pass"}`
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		c.Request.Header.Set("Content-Type", "application/json")
		var req RegisterRequest
		return c.ShouldBindJSON(&req)
	}

	require.NoError(t, bind("bob@example.com"))

	err := BindingError(bind("bob@mailinator.com"))
	assert.Equal(t, "disposable email addresses are not allowed", err.Details["email"])

	SetDisposableEmailDomains(nil)
	assert.NoError(t, bind("bob@mailinator.com"), "an empty list blocks nothing")
}
