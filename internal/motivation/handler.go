package motivation

import (
	"errors"
	"net/http"

	"github.com/taiwoajasa245/streak-api/internal/auth"
	"github.com/taiwoajasa245/streak-api/internal/store"
	"github.com/taiwoajasa245/streak-api/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) Handler {
	return Handler{service: service}
}

// GetMotivationHandler godoc
// @Summary      Today's motivation
// @Description  Returns the user's verse and quote for today, serving a new one if the stored one is from an earlier day.
// @Tags         motivation
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.APIResponse{data=Item}
// @Failure      401  {object}  response.APIResponse
// @Failure      404  {object}  response.APIResponse
// @Router       /api/motivation [get]
func (h *Handler) GetMotivationHandler(w http.ResponseWriter, r *http.Request) {
	username, ok := auth.GetUsernameFromContext(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Unauthorized", "user not logged in")
		return
	}

	item, err := h.service.Today(r.Context(), username)
	if err != nil {
		writeError(w, "Failed to get motivation", err)
		return
	}

	response.Success(w, item, "successfully")
}

// RefreshMotivationHandler godoc
// @Summary      Next motivation
// @Description  Serves the next verse and quote regardless of when the last one was served.
// @Tags         motivation
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.APIResponse{data=Item}
// @Failure      401  {object}  response.APIResponse
// @Failure      404  {object}  response.APIResponse
// @Router       /api/motivation/refresh [post]
func (h *Handler) RefreshMotivationHandler(w http.ResponseWriter, r *http.Request) {
	username, ok := auth.GetUsernameFromContext(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Unauthorized", "user not logged in")
		return
	}

	item, err := h.service.Refresh(r.Context(), username)
	if err != nil {
		writeError(w, "Failed to refresh motivation", err)
		return
	}

	response.Success(w, item, "successfully")
}

type GenerateResponse struct {
	Count int `json:"count"`
}

// GenerateQuotesHandler godoc
// @Summary      Regenerate the quote queue
// @Description  Replaces the user's queued verses and quotes with a freshly generated batch.
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.APIResponse{data=GenerateResponse}
// @Failure      401  {object}  response.APIResponse
// @Failure      502  {object}  response.APIResponse
// @Failure      503  {object}  response.APIResponse
// @Router       /api/admin/generate-quotes [post]
func (h *Handler) GenerateQuotesHandler(w http.ResponseWriter, r *http.Request) {
	username, ok := auth.GetUsernameFromContext(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Unauthorized", "user not logged in")
		return
	}

	n, err := h.service.Regenerate(r.Context(), username)
	if err != nil {
		writeError(w, "Failed to generate quotes", err)
		return
	}

	response.Success(w, GenerateResponse{Count: n}, "successfully")
}

func writeError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, store.ErrUserNotFound):
		response.Error(w, http.StatusNotFound, "User not found", err.Error())
	case errors.Is(err, ErrGeneratorUnavailable):
		response.Error(w, http.StatusServiceUnavailable, message, err.Error())
	case errors.Is(err, ErrGenerationFailed):
		response.Error(w, http.StatusBadGateway, message, err.Error())
	default:
		response.Error(w, http.StatusInternalServerError, message, err.Error())
	}
}
