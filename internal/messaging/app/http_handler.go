package app

import (
	"errors"
	"strings"

	"rural_skills_service/internal/messaging/domain"
	"rural_skills_service/internal/messaging/repository"
	"rural_skills_service/pkg/logger"
	"rural_skills_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// MessagingHTTPHandler REST endpoints next to the websocket
type MessagingHTTPHandler struct {
	agg           *Aggregator
	media         repository.MediaStore
	maxAudioBytes int64
}

// NewMessagingHTTPHandler create MessagingHTTPHandler
func NewMessagingHTTPHandler(agg *Aggregator, media repository.MediaStore, maxAudioBytes int64) *MessagingHTTPHandler {
	return &MessagingHTTPHandler{
		agg:           agg,
		media:         media,
		maxAudioBytes: maxAudioBytes,
	}
}

// UploadAudio POST /media/audio, multipart field "file"
func (h *MessagingHTTPHandler) UploadAudio(c *fiber.Ctx) error {
	userID := middlewares.UserID(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file is required"})
	}

	contentType := fileHeader.Header.Get(fiber.HeaderContentType)
	if !strings.HasPrefix(contentType, "audio/") {
		return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{"error": "only audio files are accepted"})
	}
	if fileHeader.Size <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file is empty"})
	}
	if h.maxAudioBytes > 0 && fileHeader.Size > h.maxAudioBytes {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"error": "file too large"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	defer file.Close()

	url, err := h.media.UploadAudio(c.UserContext(), userID, file, fileHeader.Size, contentType)
	if err != nil {
		logger.Log.Error("upload audio failed", zap.String("userID", userID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "upload failed"})
	}
	return c.JSON(fiber.Map{"audio_url": url})
}

// Inbox GET /inbox
func (h *MessagingHTTPHandler) Inbox(c *fiber.Ctx) error {
	userID := middlewares.UserID(c)

	summaries, unread, err := h.agg.BuildInbox(c.UserContext(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrMissingSender) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
		}
		logger.Log.Error("build inbox failed", zap.String("userID", userID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "inbox unavailable"})
	}
	return c.JSON(fiber.Map{
		"inbox":        summaries,
		"total_unread": unread,
	})
}

// Transcript GET /conversations/:partnerID
func (h *MessagingHTTPHandler) Transcript(c *fiber.Ctx) error {
	userID := middlewares.UserID(c)

	transcript, err := h.agg.SelectTranscript(c.UserContext(), userID, c.Params("partnerID"))
	if err != nil {
		logger.Log.Error("select transcript failed", zap.String("userID", userID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "transcript unavailable"})
	}
	return c.JSON(fiber.Map{
		"partner_id": c.Params("partnerID"),
		"transcript": transcript,
	})
}
