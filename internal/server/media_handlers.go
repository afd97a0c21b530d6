package server

import (
	"fmt"
	"io"

	"minisocial/internal/models"
	"minisocial/internal/service"

	"github.com/gofiber/fiber/v2"
)

// UploadMedia handles POST /api/media
// @Summary Upload an image or video
// @Description Images are re-encoded as WebP; mp4 and webm are stored as sent.
// @Tags media
// @Accept mpfd
// @Produce json
// @Param media formData file true "Media file"
// @Success 201 {object} object{media_url=string}
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /media [post]
func (s *Server) UploadMedia(c *fiber.Ctx) error {
	file, err := c.FormFile("media")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("media file is required"))
	}

	url, err := s.uploadFormFile(c, currentUserID(c), file.Filename, file.Header.Get("Content-Type"), func() (io.ReadCloser, error) {
		return file.Open()
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"media_url": url})
}

func (s *Server) uploadFormFile(c *fiber.Ctx, userID uint, filename, contentType string, open func() (io.ReadCloser, error)) (string, error) {
	f, err := open()
	if err != nil {
		return "", models.NewValidationError("Unable to read uploaded file")
	}
	defer func() { _ = f.Close() }()

	limit := s.config.MediaMaxUploadBytes()
	content, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return "", models.NewValidationError("Unable to read uploaded file")
	}
	if int64(len(content)) > limit {
		return "", models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", limit/(1024*1024)))
	}

	return s.mediaService.Upload(c.UserContext(), service.UploadMediaInput{
		UserID:      userID,
		Filename:    filename,
		ContentType: contentType,
		Content:     content,
	})
}
