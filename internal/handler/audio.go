package handler

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/stemsplit/api/internal/model"
	"github.com/stemsplit/api/internal/service"
	"github.com/stemsplit/api/internal/store"
	"github.com/stemsplit/api/pkg/response"
)

type AudioHandler struct {
	service       *service.AudioService
	validator     *validator.Validate
	maxUploadSize int64
}

func NewAudioHandler(svc *service.AudioService, v *validator.Validate, maxUploadMB int) *AudioHandler {
	return &AudioHandler{
		service:       svc,
		validator:     v,
		maxUploadSize: int64(maxUploadMB) * 1024 * 1024,
	}
}

// Upload handles POST /api/audio
func (h *AudioHandler) Upload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return response.ValidationError(c, "File is required", nil)
	}

	if file.Size > h.maxUploadSize {
		return response.ValidationError(c, fmt.Sprintf("File size exceeds %dMB limit", h.maxUploadSize/(1024*1024)), map[string]interface{}{
			"maxSize":  h.maxUploadSize,
			"fileSize": file.Size,
		})
	}

	f, err := file.Open()
	if err != nil {
		return response.ServiceError(c, "Failed to open file")
	}
	defer f.Close()

	audio, err := h.service.Upload(c.Context(), file.Filename, f)
	if err != nil {
		if errors.Is(err, service.ErrUnsupportedFile) {
			return response.ValidationError(c, err.Error(), nil)
		}
		return response.ServiceError(c, err.Error())
	}

	return response.Created(c, model.AudioResponse{
		AudioID:  audio.ID,
		Filename: audio.Filename,
	})
}

// Get handles GET /api/audio/:audioId
func (h *AudioHandler) Get(c *fiber.Ctx) error {
	audioID := c.Params("audioId")
	if audioID == "" {
		return response.ValidationError(c, "Audio ID is required", nil)
	}

	audio, err := h.service.Get(c.Context(), audioID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, fmt.Sprintf("Audio %s not found", audioID))
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, audio)
}
