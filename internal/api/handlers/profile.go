package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/rohits-web03/chatvault/internal/models"
	"github.com/rohits-web03/chatvault/internal/utils"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type ProfileReader interface {
	Get(ctx context.Context, userID string) (*models.Profile, error)
}

type Profiles struct {
	Store ProfileReader
}

// GET /api/v1/profile
// GetProfile godoc
// @Summary Current user's profile
// @Tags Profile
// @Produce json
// @Success 200 {object} utils.Payload
// @Router /api/v1/profile [get]
func (h *Profiles) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	profile, err := h.Store.Get(r.Context(), userID.String())
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		utils.Error(w, http.StatusNotFound, "Profile not found")
		return
	case err != nil:
		log.Error().Err(err).Msg("Failed to load profile")
		utils.Error(w, http.StatusInternalServerError, "Database error")
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Profile retrieved successfully",
		Data: map[string]any{
			"id":                profile.ID,
			"username":          profile.Username,
			"email":             profile.Email,
			"createdAt":         profile.CreatedAt,
			"encryptionEnabled": profile.EncryptionSalt != nil,
		},
	})
}
