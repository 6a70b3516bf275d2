package apiclient

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractDetail(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"detail string", `{"detail":"Incorrect email or password"}`, "Incorrect email or password"},
		{"validation list", `{"detail":[{"loc":["body","email"],"msg":"value is not a valid email address","type":"value_error"},{"loc":["body","username"],"msg":"too short","type":"value_error"}]}`, "email: value is not a valid email address; username: too short"},
		{"validation without loc", `{"detail":[{"msg":"bad"}]}`, "bad"},
		{"error field", `{"success":false,"error":"boom"}`, "boom"},
		{"message field", `{"message":"Server busy"}`, "Server busy"},
		{"empty detail", `{"detail":""}`, ""},
		{"not json", `<html>502</html>`, ""},
		{"empty", ``, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractDetail([]byte(tt.body)))
		})
	}
}

func TestAPIError(t *testing.T) {
	withDetail := &APIError{Status: http.StatusUnauthorized, Detail: "Not authenticated"}
	assert.Equal(t, "api error (HTTP 401): Not authenticated", withDetail.Error())
	assert.True(t, IsUnauthorized(withDetail))
	assert.False(t, IsTransport(withDetail))
	assert.Equal(t, "Not authenticated", DetailOf(withDetail, "fallback"))

	cause := errors.New("connection refused")
	transport := &APIError{Err: cause}
	assert.Equal(t, "request failed: connection refused", transport.Error())
	assert.True(t, IsTransport(transport))
	assert.ErrorIs(t, transport, cause)
	assert.Equal(t, "fallback", DetailOf(transport, "fallback"))

	bare := &APIError{Status: http.StatusBadGateway}
	assert.Equal(t, "api error (HTTP 502)", bare.Error())
	assert.Equal(t, "fallback", DetailOf(errors.New("plain"), "fallback"))
}
