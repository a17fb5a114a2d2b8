package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/taiwoajasa245/streak-api/pkg/response"
)

type AuthHandler struct {
	service *AuthService
}

func NewHandler(service *AuthService) AuthHandler {
	return AuthHandler{service: service}
}

// RegisterHandler godoc
// @Summary      Register
// @Description  Creates a user with a 4 digit passcode and returns a bearer token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      RegisterRequest  true  "credentials"
// @Success      201   {object}  response.APIResponse{data=User}
// @Failure      400   {object}  response.APIResponse
// @Router       /api/register [post]
func (h *AuthHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid JSON body", err.Error())
		return
	}

	user, err := h.service.Register(r.Context(), req.Username, req.Passcode)
	if err != nil {
		switch {
		case errors.Is(err, ErrMissingCredentials), errors.Is(err, ErrInvalidPasscode), errors.Is(err, ErrUsernameTaken):
			response.Error(w, http.StatusBadRequest, err.Error(), err.Error())
		default:
			response.Error(w, http.StatusInternalServerError, "Failed to create user", err.Error())
		}
		return
	}

	response.Created(w, user, "User registered successfully")
}

// LoginHandler godoc
// @Summary      Login
// @Description  Exchanges a username and passcode for a bearer token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      LoginRequest  true  "credentials"
// @Success      200   {object}  response.APIResponse{data=User}
// @Failure      400   {object}  response.APIResponse
// @Failure      401   {object}  response.APIResponse
// @Router       /api/login [post]
func (h *AuthHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid JSON body", err.Error())
		return
	}

	user, err := h.service.Login(r.Context(), req.Username, req.Passcode)
	if err != nil {
		switch {
		case errors.Is(err, ErrMissingCredentials):
			response.Error(w, http.StatusBadRequest, "Missing required fields", map[string]string{
				"username": "Username is required",
				"passcode": "Passcode is required",
			})
		case errors.Is(err, ErrInvalidCredentials):
			response.Error(w, http.StatusUnauthorized, "Invalid credentials", err.Error())
		default:
			response.Error(w, http.StatusInternalServerError, "Failed to log in", err.Error())
		}
		return
	}

	response.Success(w, user, "Ok")
}

// LogoutHandler godoc
// @Summary      Logout
// @Description  Tokens are stateless; clients drop theirs.
// @Tags         auth
// @Produce      json
// @Success      200  {object}  response.APIResponse
// @Router       /api/logout [post]
func (h *AuthHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	response.Success(w, nil, "Logged out")
}

// GetUserDetailsHandler godoc
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.APIResponse{data=User}
// @Failure      401  {object}  response.APIResponse
// @Router       /api/me [get]
func (h *AuthHandler) GetUserDetailsHandler(w http.ResponseWriter, r *http.Request) {
	username, ok := GetUsernameFromContext(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Unauthorized", "user not logged in")
		return
	}

	user, err := h.service.Me(r.Context(), username)
	if err != nil {
		response.Error(w, http.StatusNotFound, "User not found", err.Error())
		return
	}

	response.Success(w, user, "Ok")
}
