package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/efarmer/subsidy/cmd/subsidy/service"
	"github.com/efarmer/subsidy/common/imagededup"
	"github.com/efarmer/subsidy/common/models"
)

// Multipart field names of the upload form
var imageFields = map[models.ImageRole]string{
	models.RoleStandard: "standardImage",
	models.RoleCorner:   "cornerImage",
}

// ImageHandler handles verification photo uploads
type ImageHandler struct {
	images         *service.ImageService
	blobs          *service.BlobService
	maxUploadBytes int64
}

// NewImageHandler creates a new image handler
func NewImageHandler(images *service.ImageService, blobs *service.BlobService, maxUploadBytes int64) *ImageHandler {
	return &ImageHandler{
		images:         images,
		blobs:          blobs,
		maxUploadBytes: maxUploadBytes,
	}
}

// UploadImages accepts standardImage and/or cornerImage and runs the duplicate check
// POST /api/v1/farmers/:efn/images
func (h *ImageHandler) UploadImages(c echo.Context) error {
	if h.maxUploadBytes > 0 {
		c.Request().Body = http.MaxBytesReader(c.Response(), c.Request().Body, h.maxUploadBytes)
	}

	var inputs []service.ImageInput
	for _, role := range models.Roles {
		fh, err := c.FormFile(imageFields[role])
		if err != nil {
			if errors.Is(err, http.ErrMissingFile) {
				continue
			}
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return c.JSON(http.StatusRequestEntityTooLarge, map[string]interface{}{
					"error":   "upload_too_large",
					"message": fmt.Sprintf("upload exceeds %d bytes", h.maxUploadBytes),
				})
			}
			return badRequest(c, "invalid multipart form")
		}
		if fh.Filename == "" {
			continue
		}

		content, err := readFormFile(fh)
		if err != nil {
			return badRequest(c, fmt.Sprintf("failed to read %s", imageFields[role]))
		}

		inputs = append(inputs, service.ImageInput{
			Role:      role,
			MediaType: fh.Header.Get("Content-Type"),
			Content:   content,
		})
	}

	result, err := h.images.Upload(c.Request().Context(), c.Param("efn"), inputs)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"farmer":   farmerResponse(result.Farmer),
		"findings": result.Findings,
	})
}

// GetImage streams a stored image by digest or sha256: ref
// GET /api/v1/images/:digest
func (h *ImageHandler) GetImage(c echo.Context) error {
	ref := c.Param("digest")
	if !strings.HasPrefix(ref, "sha256:") {
		ref = imagededup.Ref(ref)
	}

	blob, err := h.blobs.GetBlob(c.Request().Context(), ref)
	if err != nil {
		return respondError(c, err)
	}

	mediaType := blob.MediaType
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	c.Response().Header().Set("Content-Length", strconv.FormatInt(blob.SizeBytes, 10))
	return c.Blob(http.StatusOK, mediaType, blob.Content)
}

// GetUsages lists every recorded submission of an image digest
// GET /api/v1/images/:digest/usages
func (h *ImageHandler) GetUsages(c echo.Context) error {
	digest := strings.TrimPrefix(c.Param("digest"), "sha256:")
	usages, err := h.images.Usages(c.Request().Context(), digest)
	if err != nil {
		return respondError(c, err)
	}
	if usages == nil {
		usages = []models.UsageRecord{}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"digest": digest,
		"usages": usages,
	})
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
