package http

import (
	"net/http"
	"time"

	"github.com/Eyad010/postfeed/internal/common"
	"github.com/Eyad010/postfeed/internal/server/services"
)

const (
	cookieName      = common.AuthCookieName
	loggedOutValue  = common.LoggedOutCookieValue
	loggedOutMaxAge = 10 * time.Second
)

type signupRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
	Phone           string `json:"phone"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updatePasswordRequest struct {
	PasswordCurrent string `json:"passwordCurrent"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type verifyResetCodeRequest struct {
	Email     string `json:"email"`
	ResetCode string `json:"resetCode"`
}

type resetPasswordRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

func (h *Handler) setTokenCookie(w http.ResponseWriter, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    value,
		Path:     "/",
		Expires:  h.now().Add(ttl),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// sendSession sets the jwt cookie and writes {status, token, data:{user}}.
func (h *Handler) sendSession(w http.ResponseWriter, status int, sess *services.Session) {
	h.setTokenCookie(w, sess.Token, h.auth.TokenValidity())
	writeJSON(w, status, envelope{
		"status": "success",
		"token":  sess.Token,
		"data":   envelope{"user": sess.User},
	})
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	sess, err := h.auth.Signup(r.Context(), services.SignupInput(req))
	h.metrics.AuthEvent("signup", err)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.sendSession(w, http.StatusCreated, sess)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	sess, err := h.auth.Login(r.Context(), req.Email, req.Password)
	h.metrics.AuthEvent("login", err)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.sendSession(w, http.StatusOK, sess)
}

// Logout overwrites the jwt cookie with a short-lived placeholder. Tokens
// are stateless, so nothing is revoked server-side.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.setTokenCookie(w, loggedOutValue, loggedOutMaxAge)
	writeJSON(w, http.StatusOK, envelope{"status": "success"})
}

func (h *Handler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req updatePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	sess, err := h.auth.UpdatePassword(r.Context(), user.ID, services.UpdatePasswordInput(req))
	h.metrics.AuthEvent("update_password", err)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.sendSession(w, http.StatusOK, sess)
}

func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	err := h.auth.ForgotPassword(r.Context(), req.Email)
	h.metrics.AuthEvent("forgot_password", err)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeMessage(w, "Reset code sent to email!")
}

func (h *Handler) VerifyResetCode(w http.ResponseWriter, r *http.Request) {
	var req verifyResetCodeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	err := h.auth.VerifyResetCode(r.Context(), req.Email, req.ResetCode)
	h.metrics.AuthEvent("verify_reset_code", err)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeMessage(w, "Reset code verified")
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	sess, err := h.auth.ResetPassword(r.Context(), services.ResetPasswordInput(req))
	h.metrics.AuthEvent("reset_password", err)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.sendSession(w, http.StatusOK, sess)
}
