package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/sharebox/internal/pkg/errcode"
	"github.com/xxxsen/sharebox/internal/pkg/response"
	"github.com/xxxsen/sharebox/internal/pkg/timeutil"
	"github.com/xxxsen/sharebox/internal/service"
)

type ShareHandler struct {
	shares *service.ShareService
}

func NewShareHandler(shares *service.ShareService) *ShareHandler {
	return &ShareHandler{shares: shares}
}

type createShareRequest struct {
	Password  *string `json:"password"`
	ExpiresAt *int64  `json:"expires_at"`
}

type accessShareRequest struct {
	Password string `json:"password"`
}

func (h *ShareHandler) Create(c *gin.Context) {
	var req createShareRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "invalid request")
		return
	}
	input := service.IssueInput{
		FileID:   c.Param("id"),
		OwnerID:  getOwnerID(c),
		Password: req.Password,
	}
	if req.ExpiresAt != nil {
		expiresAt := timeutil.FromUnixMilli(*req.ExpiresAt)
		input.ExpiresAt = &expiresAt
	}
	link, err := h.shares.Issue(c.Request.Context(), input)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, link)
}

func (h *ShareHandler) List(c *gin.Context) {
	links, err := h.shares.ListByFile(c.Request.Context(), getOwnerID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, links)
}

func (h *ShareHandler) Revoke(c *gin.Context) {
	if err := h.shares.Revoke(c.Request.Context(), getOwnerID(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"id": c.Param("id")})
}

func (h *ShareHandler) PublicMeta(c *gin.Context) {
	meta, err := h.shares.Metadata(c.Request.Context(), c.Param("token"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, meta)
}

func (h *ShareHandler) PublicAccess(c *gin.Context) {
	var req accessShareRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "invalid request")
		return
	}
	result, err := h.shares.Access(c.Request.Context(), c.Param("token"), req.Password)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}
