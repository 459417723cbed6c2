package api

import (
	"net/http"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func tokenFrom(t *testing.T, body string) string {
	t.Helper()
	i := strings.Index(body, "token=")
	require.GreaterOrEqual(t, i, 0, body)
	return strings.TrimSpace(body[i+len("token="):])
}

func TestRegisterConfirmLogin(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, "POST", "/api/auth/register", "", RegisterRequest{
		Name: "New", Email: "new@example.com", Password: "secret1", ConfirmPassword: "secret2",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "confirm_password", decode[ErrorResponse](t, rr).Field)

	rr = s.do(t, "POST", "/api/auth/register", "", RegisterRequest{
		Name: "New", Email: "new@example.com", Password: "secret1", ConfirmPassword: "secret1",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = s.do(t, "POST", "/api/auth/login", "", LoginRequest{Email: "new@example.com", Password: "secret1"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Email not confirmed", decode[ErrorResponse](t, rr).Error)

	sent, ok := s.mailer.Last()
	require.True(t, ok)
	assert.Contains(t, sent.TextBody, "http://test.local/confirm-email?token=")

	rr = s.do(t, "POST", "/api/auth/confirm", "", map[string]string{"token": tokenFrom(t, sent.TextBody)})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, decode[UserResponse](t, rr).Confirmed)

	rr = s.do(t, "POST", "/api/auth/login", "", LoginRequest{Email: "new@example.com", Password: "secret1"})
	require.Equal(t, http.StatusOK, rr.Code)
	session := decode[SessionResponse](t, rr)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, "New", session.Profile.Name)

	rr = s.do(t, "POST", "/api/auth/login", "", LoginRequest{Email: "new@example.com", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Invalid login credentials", decode[ErrorResponse](t, rr).Error)

	rr = s.do(t, "POST", "/api/auth/register", "", RegisterRequest{
		Name: "Again", Email: "new@example.com", Password: "secret1", ConfirmPassword: "secret1",
	})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "email", decode[ErrorResponse](t, rr).Field)
}

func TestLogout(t *testing.T) {
	s := newTestServer(t)
	_, token := s.seedAndLogin(t, "bye@example.com", false)

	assert.Equal(t, http.StatusNoContent, s.do(t, "POST", "/api/auth/logout", token, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, "GET", "/api/me", token, nil).Code)
}

func TestForgotAndResetPassword(t *testing.T) {
	s := newTestServer(t)
	_, token := s.seedAndLogin(t, "test@example.com", false)

	rr := s.do(t, "POST", "/api/auth/forgot-password", "", map[string]string{"email": "missing@example.com"})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, s.mailer.SentEmails)

	rr = s.do(t, "POST", "/api/auth/forgot-password", "", map[string]string{"email": "test@example.com"})
	require.Equal(t, http.StatusOK, rr.Code)
	sent, ok := s.mailer.Last()
	require.True(t, ok)
	assert.Equal(t, "test@example.com", sent.To)
	assert.Contains(t, sent.HtmlBody, "http://test.local/update-password?token=")

	reset := PasswordRequest{Token: tokenFrom(t, sent.TextBody), Password: "newpassword", ConfirmPassword: "newpassword"}
	require.Equal(t, http.StatusOK, s.do(t, "POST", "/api/auth/reset-password", "", reset).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, "POST", "/api/auth/reset-password", "", reset).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, "GET", "/api/me", token, nil).Code, "reset ends existing sessions")

	rr = s.do(t, "POST", "/api/auth/login", "", LoginRequest{Email: "test@example.com", Password: "newpassword"})
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestUpdatePassword(t *testing.T) {
	s := newTestServer(t)
	_, token := s.seedAndLogin(t, "pw@example.com", false)

	rr := s.do(t, "POST", "/api/auth/update-password", token, PasswordRequest{Password: "short", ConfirmPassword: "short"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do(t, "POST", "/api/auth/update-password", token, PasswordRequest{Password: "longer1", ConfirmPassword: "longer1"})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = s.do(t, "POST", "/api/auth/login", "", LoginRequest{Email: "pw@example.com", Password: "longer1"})
	assert.Equal(t, http.StatusOK, rr.Code)
}
