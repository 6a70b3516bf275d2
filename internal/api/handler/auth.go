package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Rrens/knowflow/internal/api/response"
	"github.com/Rrens/knowflow/internal/domain"
	"github.com/Rrens/knowflow/internal/store"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// validationErrors maps each failing field to a short message
func validationErrors(err error) any {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}

	out := make(map[string]string)
	for _, e := range validationErrors {
		field := e.Field()
		tag := e.Tag()
		switch tag {
		case "required":
			out[field] = "field is required"
		case "email":
			out[field] = "invalid email format"
		case "min":
			out[field] = "must be at least " + e.Param() + " characters"
		case "max":
			out[field] = "must be at most " + e.Param() + " characters"
		default:
			out[field] = "validation failed on " + tag
		}
	}
	return out
}

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	auth *store.AuthStore
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(auth *store.AuthStore) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Login handles user login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input domain.UserLogin
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, validationErrors(err))
		return
	}

	if !h.auth.Login(r.Context(), input.Email, input.Password) {
		response.Unauthorized(w, h.auth.Snapshot().Error)
		return
	}

	response.OK(w, h.auth.Snapshot())
}

// Register handles user registration. Field rules are enforced by the store.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input domain.UserRegister
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if !h.auth.Register(r.Context(), input.Username, input.Email, input.Password) {
		response.StoreFailure(w, h.auth.Snapshot().Error, "Registration failed")
		return
	}

	response.Created(w, map[string]string{
		"message": "registration successful, please sign in",
	})
}

// Logout forgets the stored token
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.auth.Logout(r.Context())
	response.OK(w, h.auth.Snapshot())
}

// Profile re-validates the stored token against the server
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	h.auth.GetProfile(r.Context())

	state := h.auth.Snapshot()
	if !state.IsAuthenticated {
		response.Unauthorized(w, "not signed in")
		return
	}
	response.OK(w, state)
}
