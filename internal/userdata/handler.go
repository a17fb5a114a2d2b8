// Package userdata serves a user's whole tracker document.
package userdata

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/taiwoajasa245/streak-api/internal/auth"
	"github.com/taiwoajasa245/streak-api/internal/motivation"
	"github.com/taiwoajasa245/streak-api/internal/store"
	"github.com/taiwoajasa245/streak-api/pkg/response"
)

const maxDocumentBytes = 1 << 20

type Handler struct {
	store      store.Store
	motivation *motivation.Service
	logger     *zap.Logger
}

func NewHandler(s store.Store, motivationService *motivation.Service, logger *zap.Logger) Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return Handler{store: s, motivation: motivationService, logger: logger.Named("userdata")}
}

// GetDataHandler godoc
// @Summary      Get the tracker document
// @Description  Returns the user's whole document after making sure today's motivation is in it.
// @Tags         data
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.APIResponse{data=object}
// @Failure      401  {object}  response.APIResponse
// @Failure      404  {object}  response.APIResponse
// @Router       /api/data [get]
func (h *Handler) GetDataHandler(w http.ResponseWriter, r *http.Request) {
	username, ok := auth.GetUsernameFromContext(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Unauthorized", "user not logged in")
		return
	}

	var user *store.User
	err := h.motivation.WithToday(r.Context(), username, func(motivation.Item) error {
		var err error
		user, err = h.store.GetUser(r.Context(), username)
		return err
	})
	if err != nil {
		writeError(w, "Failed to load data", err)
		return
	}

	response.Success(w, user.Data, "successfully")
}

// SaveDataHandler godoc
// @Summary      Save the tracker document
// @Description  Replaces the user's document. The stored quote queue and its position are kept whatever the body says.
// @Tags         data
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      object  true  "tracker document"
// @Success      200   {object}  response.APIResponse
// @Failure      400   {object}  response.APIResponse
// @Failure      401   {object}  response.APIResponse
// @Router       /api/data [post]
func (h *Handler) SaveDataHandler(w http.ResponseWriter, r *http.Request) {
	username, ok := auth.GetUsernameFromContext(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Unauthorized", "user not logged in")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxDocumentBytes+1))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid JSON body", err.Error())
		return
	}
	if len(body) > maxDocumentBytes {
		response.Error(w, http.StatusRequestEntityTooLarge, "Document too large", nil)
		return
	}

	var incoming map[string]json.RawMessage
	if err := json.Unmarshal(body, &incoming); err != nil || incoming == nil {
		response.Error(w, http.StatusBadRequest, "Invalid data format", "body must be a JSON object")
		return
	}

	unlock := h.motivation.Lock(username)
	defer unlock()

	user, err := h.store.GetUser(r.Context(), username)
	if err != nil {
		writeError(w, "Failed to save data", err)
		return
	}
	existing, err := store.Fields(user.Data)
	if err != nil {
		writeError(w, "Failed to save data", err)
		return
	}

	for _, field := range motivation.BackendFields {
		if v, ok := existing[field]; ok {
			incoming[field] = v
		} else {
			delete(incoming, field)
		}
	}

	merged, err := json.Marshal(incoming)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "Failed to save data", err.Error())
		return
	}
	if err := h.store.ReplaceData(r.Context(), username, merged); err != nil {
		h.logger.Error("failed to save user data", zap.String("username", username), zap.Error(err))
		writeError(w, "Failed to save data", err)
		return
	}

	response.Success(w, nil, "Data saved successfully")
}

func writeError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, store.ErrUserNotFound):
		response.Error(w, http.StatusNotFound, "User not found", err.Error())
	case errors.Is(err, store.ErrInvalidDocument):
		response.Error(w, http.StatusBadRequest, message, err.Error())
	default:
		response.Error(w, http.StatusInternalServerError, message, err.Error())
	}
}
