package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rohits-web03/chatvault/internal/api/middleware"
	"github.com/rohits-web03/chatvault/internal/encryption"
	"github.com/rohits-web03/chatvault/internal/models"
	"github.com/rohits-web03/chatvault/internal/repositories"
	"github.com/rohits-web03/chatvault/internal/utils"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type ConversationRepository interface {
	Create(ctx context.Context, c *models.Conversation) error
	Get(ctx context.Context, userID, id uuid.UUID) (*models.Conversation, error)
	List(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error)
	UpdateContent(ctx context.Context, userID, id uuid.UUID, title, content string) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

type BackupStorage interface {
	Put(ctx context.Context, key string, body []byte) error
	PresignGet(ctx context.Context, key string, expires time.Duration) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// Conversations serves the conversation endpoints. Message lists are
// encrypted before they reach the store and decrypted on the way out.
type Conversations struct {
	Store   ConversationRepository
	Codec   *encryption.Codec
	Backups BackupStorage // nil when object storage is not configured
}

const backupURLExpiry = 15 * time.Minute

func (h *Conversations) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /conversations", h.List)
	mux.HandleFunc("POST /conversations", h.Create)
	mux.HandleFunc("GET /conversations/{id}", h.Get)
	mux.HandleFunc("PUT /conversations/{id}", h.Update)
	mux.HandleFunc("DELETE /conversations/{id}", h.Delete)
	mux.HandleFunc("POST /conversations/{id}/backup", h.CreateBackup)
	mux.HandleFunc("GET /conversations/{id}/backup", h.GetBackup)
}

type conversationInput struct {
	Title    string           `json:"title"`
	Messages []models.Message `json:"messages"`
}

func currentUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw, ok := middleware.UserID(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Unauthorized")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		utils.Error(w, http.StatusUnauthorized, "Unauthorized")
		return uuid.Nil, false
	}
	return id, true
}

func conversationID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid conversation id")
		return uuid.Nil, false
	}
	return id, true
}

func decodeConversationInput(w http.ResponseWriter, r *http.Request) (conversationInput, bool) {
	var input conversationInput
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&input); err != nil || input.Messages == nil {
		utils.Error(w, http.StatusBadRequest, "Invalid input")
		return input, false
	}
	return input, true
}

func (h *Conversations) loadConversation(w http.ResponseWriter, r *http.Request) (uuid.UUID, *models.Conversation, bool) {
	userID, ok := currentUser(w, r)
	if !ok {
		return uuid.Nil, nil, false
	}
	id, ok := conversationID(w, r)
	if !ok {
		return uuid.Nil, nil, false
	}

	conv, err := h.Store.Get(r.Context(), userID, id)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		utils.Error(w, http.StatusNotFound, "Conversation not found")
		return uuid.Nil, nil, false
	case err != nil:
		log.Error().Err(err).Str("conversation_id", id.String()).Msg("Failed to query conversation")
		utils.Error(w, http.StatusInternalServerError, "Database error")
		return uuid.Nil, nil, false
	}
	return userID, conv, true
}

// GET /api/v1/conversations
// ListConversations godoc
// @Summary List conversations
// @Description Returns the caller's conversations without their content.
// @Tags Conversations
// @Produce json
// @Success 200 {object} utils.Payload
// @Router /api/v1/conversations [get]
func (h *Conversations) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	convs, err := h.Store.List(r.Context(), userID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list conversations")
		utils.Error(w, http.StatusInternalServerError, "Database error")
		return
	}

	items := make([]map[string]any, 0, len(convs))
	for _, c := range convs {
		items = append(items, map[string]any{
			"id":        c.ID,
			"title":     c.Title,
			"createdAt": c.CreatedAt,
			"updatedAt": c.UpdatedAt,
		})
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Conversations retrieved successfully",
		Data:    items,
	})
}

// POST /api/v1/conversations
// CreateConversation godoc
// @Summary Save a conversation
// @Description Encrypts the message list with the caller's key and stores it.
// @Tags Conversations
// @Accept json
// @Produce json
// @Success 201 {object} utils.Payload
// @Failure 400 {object} utils.Payload
// @Router /api/v1/conversations [post]
func (h *Conversations) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	input, ok := decodeConversationInput(w, r)
	if !ok {
		return
	}
	if input.Title == "" {
		input.Title = "New conversation"
	}

	content, err := h.Codec.EncryptConversationContent(r.Context(), input.Messages, userID.String())
	if err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("Failed to encrypt conversation")
		utils.Error(w, http.StatusInternalServerError, "Failed to save conversation")
		return
	}

	conv := models.Conversation{UserID: userID, Title: input.Title, Content: content}
	if err := h.Store.Create(r.Context(), &conv); err != nil {
		log.Error().Err(err).Msg("Failed to insert conversation")
		utils.Error(w, http.StatusInternalServerError, "Failed to save conversation")
		return
	}

	utils.JSONResponse(w, http.StatusCreated, utils.Payload{
		Success: true,
		Message: "Conversation saved",
		Data:    map[string]any{"id": conv.ID, "title": conv.Title},
	})
}

// GET /api/v1/conversations/{id}
// GetConversation godoc
// @Summary Load a conversation
// @Description Decrypts and returns a conversation. 409 means the encryption key has changed.
// @Tags Conversations
// @Produce json
// @Param id path string true "Conversation ID"
// @Success 200 {object} utils.Payload
// @Failure 404 {object} utils.Payload
// @Failure 409 {object} utils.Payload
// @Failure 500 {object} utils.Payload
// @Router /api/v1/conversations/{id} [get]
func (h *Conversations) Get(w http.ResponseWriter, r *http.Request) {
	userID, conv, ok := h.loadConversation(w, r)
	if !ok {
		return
	}

	decoded, err := h.Codec.DecryptConversationContent(r.Context(), conv.Content, userID.String())
	switch {
	case errors.Is(err, encryption.ErrKeyChanged):
		utils.Error(w, http.StatusConflict, "Your encryption key has changed. Please contact support to recover this conversation.")
		return
	case err != nil:
		log.Error().Err(err).Str("conversation_id", conv.ID.String()).Msg("Failed to decrypt conversation")
		utils.Error(w, http.StatusInternalServerError, "Failed to load conversation")
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Conversation retrieved successfully",
		Data: map[string]any{
			"id":        conv.ID,
			"title":     conv.Title,
			"createdAt": conv.CreatedAt,
			"updatedAt": conv.UpdatedAt,
			"encrypted": decoded.Encrypted(),
			"messages":  decoded.Value(),
		},
	})
}

// PUT /api/v1/conversations/{id}
// UpdateConversation godoc
// @Summary Replace a conversation's messages
// @Description Re-encrypts the full message list under the current key.
// @Tags Conversations
// @Accept json
// @Produce json
// @Param id path string true "Conversation ID"
// @Success 200 {object} utils.Payload
// @Failure 404 {object} utils.Payload
// @Router /api/v1/conversations/{id} [put]
func (h *Conversations) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := conversationID(w, r)
	if !ok {
		return
	}
	input, ok := decodeConversationInput(w, r)
	if !ok {
		return
	}

	// ownership is checked before any key is derived
	_, err := h.Store.Get(r.Context(), userID, id)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		utils.Error(w, http.StatusNotFound, "Conversation not found")
		return
	case err != nil:
		log.Error().Err(err).Msg("Failed to query conversation")
		utils.Error(w, http.StatusInternalServerError, "Database error")
		return
	}

	content, err := h.Codec.EncryptConversationContent(r.Context(), input.Messages, userID.String())
	if err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("Failed to encrypt conversation")
		utils.Error(w, http.StatusInternalServerError, "Failed to save conversation")
		return
	}

	err = h.Store.UpdateContent(r.Context(), userID, id, input.Title, content)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		utils.Error(w, http.StatusNotFound, "Conversation not found")
		return
	case err != nil:
		log.Error().Err(err).Msg("Failed to update conversation")
		utils.Error(w, http.StatusInternalServerError, "Failed to save conversation")
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{Success: true, Message: "Conversation saved"})
}

// DELETE /api/v1/conversations/{id}
// DeleteConversation godoc
// @Summary Delete a conversation
// @Description Soft-deletes a conversation owned by the caller.
// @Tags Conversations
// @Produce json
// @Param id path string true "Conversation ID"
// @Success 200 {object} utils.Payload
// @Failure 404 {object} utils.Payload
// @Router /api/v1/conversations/{id} [delete]
func (h *Conversations) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := conversationID(w, r)
	if !ok {
		return
	}

	err := h.Store.Delete(r.Context(), userID, id)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		utils.Error(w, http.StatusNotFound, "Conversation not found")
		return
	case err != nil:
		log.Error().Err(err).Msg("Failed to delete conversation")
		utils.Error(w, http.StatusInternalServerError, "Database error")
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{Success: true, Message: "Conversation deleted"})
}

// POST /api/v1/conversations/{id}/backup
// CreateBackup godoc
// @Summary Back up a conversation
// @Description Uploads the encrypted envelope to object storage and returns a temporary download URL.
// @Tags Conversations
// @Produce json
// @Param id path string true "Conversation ID"
// @Success 200 {object} utils.Payload
// @Failure 503 {object} utils.Payload "Backups not configured"
// @Router /api/v1/conversations/{id}/backup [post]
func (h *Conversations) CreateBackup(w http.ResponseWriter, r *http.Request) {
	if h.Backups == nil {
		utils.Error(w, http.StatusServiceUnavailable, "Backups are not configured")
		return
	}
	userID, conv, ok := h.loadConversation(w, r)
	if !ok {
		return
	}

	body, err := h.backupBody(r.Context(), userID.String(), conv)
	if err != nil {
		log.Error().Err(err).Str("conversation_id", conv.ID.String()).Msg("Failed to prepare backup")
		utils.Error(w, http.StatusInternalServerError, "Failed to create backup")
		return
	}

	key := repositories.BackupKey(userID.String(), conv.ID.String())
	if err := h.Backups.Put(r.Context(), key, body); err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to upload backup")
		utils.Error(w, http.StatusBadGateway, "Failed to create backup")
		return
	}

	h.respondWithBackupURL(w, r, key, "Backup created successfully")
}

// backupBody returns the stored envelope. Content that predates encryption
// is sealed first so plaintext never leaves the database.
func (h *Conversations) backupBody(ctx context.Context, userID string, conv *models.Conversation) ([]byte, error) {
	payload, err := encryption.ParseStoredPayload(conv.Content)
	if err != nil {
		return nil, err
	}
	if legacy, ok := payload.(encryption.PlaintextLegacy); ok {
		value := encryption.DecodedContent{Raw: legacy.Text}.Value()
		sealed, err := h.Codec.EncryptConversationContent(ctx, value, userID)
		if err != nil {
			return nil, err
		}
		return []byte(sealed), nil
	}
	return []byte(conv.Content), nil
}

// GET /api/v1/conversations/{id}/backup
// GetBackup godoc
// @Summary Download link for a backup
// @Description Returns a temporary URL for a previously uploaded backup.
// @Tags Conversations
// @Produce json
// @Param id path string true "Conversation ID"
// @Success 200 {object} utils.Payload
// @Failure 404 {object} utils.Payload "No backup found"
// @Failure 503 {object} utils.Payload "Backups not configured"
// @Router /api/v1/conversations/{id}/backup [get]
func (h *Conversations) GetBackup(w http.ResponseWriter, r *http.Request) {
	if h.Backups == nil {
		utils.Error(w, http.StatusServiceUnavailable, "Backups are not configured")
		return
	}
	userID, conv, ok := h.loadConversation(w, r)
	if !ok {
		return
	}

	key := repositories.BackupKey(userID.String(), conv.ID.String())
	exists, err := h.Backups.Exists(r.Context(), key)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to check backup")
		utils.Error(w, http.StatusBadGateway, "Failed to look up backup")
		return
	}
	if !exists {
		utils.Error(w, http.StatusNotFound, "No backup found")
		return
	}

	h.respondWithBackupURL(w, r, key, "Backup URL generated successfully")
}

func (h *Conversations) respondWithBackupURL(w http.ResponseWriter, r *http.Request, key, message string) {
	url, err := h.Backups.PresignGet(r.Context(), key, backupURLExpiry)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to presign backup URL")
		utils.Error(w, http.StatusInternalServerError, "Failed to generate download URL")
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: message,
		Data: map[string]any{
			"url":       url,
			"expiresIn": backupURLExpiry.String(),
		},
	})
}
