package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/sharebox/internal/pkg/errcode"
	"github.com/xxxsen/sharebox/internal/pkg/response"
	"github.com/xxxsen/sharebox/internal/service"
)

type FileHandler struct {
	files     *service.FileService
	maxUpload int64
}

func NewFileHandler(files *service.FileService, maxUpload int64) *FileHandler {
	return &FileHandler{files: files, maxUpload: maxUpload}
}

func (h *FileHandler) Upload(c *gin.Context) {
	limitBody(c, h.maxUpload)
	file, err := c.FormFile("file")
	if err != nil {
		if isBodyTooLarge(err) {
			response.Error(c, http.StatusRequestEntityTooLarge, errcode.ErrInvalidFile, "file exceeds "+formatUploadLimit(h.maxUpload))
			return
		}
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalidFile, "file is required")
		return
	}
	if h.maxUpload > 0 && file.Size > h.maxUpload {
		response.Error(c, http.StatusRequestEntityTooLarge, errcode.ErrInvalidFile, "file exceeds "+formatUploadLimit(h.maxUpload))
		return
	}
	opened, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalidFile, "failed to open file")
		return
	}
	defer opened.Close()

	record, err := h.files.Upload(c.Request.Context(), getOwnerID(c), file.Filename, file.Size, opened)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, record)
}

func (h *FileHandler) List(c *gin.Context) {
	files, err := h.files.List(c.Request.Context(), getOwnerID(c), queryUint(c, "limit"), queryUint(c, "offset"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, files)
}

func (h *FileHandler) Delete(c *gin.Context) {
	if err := h.files.Delete(c.Request.Context(), getOwnerID(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"id": c.Param("id")})
}
