package handler

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/sharebox/internal/filestore"
)

// BlobHandler serves capability URLs minted by stores that have no native
// presigning, i.e. the local disk store.
type BlobHandler struct {
	store filestore.Store
}

func NewBlobHandler(store filestore.Store) *BlobHandler {
	return &BlobHandler{store: store}
}

func (h *BlobHandler) Get(c *gin.Context) {
	verifier, ok := h.store.(filestore.SignatureVerifier)
	if !ok {
		c.Status(http.StatusNotFound)
		return
	}
	key := c.Param("key")
	filename, err := verifier.VerifyDownload(key, c.Query("sig"))
	if err != nil {
		c.Status(http.StatusForbidden)
		return
	}
	file, err := h.store.Get(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, filestore.ErrObjectNotFound) {
			c.Status(http.StatusNotFound)
			return
		}
		logutil.GetLogger(c.Request.Context()).Error("open blob failed", zap.String("key", key), zap.Error(err))
		c.Status(http.StatusServiceUnavailable)
		return
	}
	defer file.Close()

	contentType := mime.TypeByExtension(filepath.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if filename == "" {
		filename = key
	}
	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	c.Header("X-Content-Type-Options", "nosniff")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, file); err != nil {
		logutil.GetLogger(c.Request.Context()).Warn("stream blob interrupted", zap.String("key", key), zap.Error(err))
	}
}
