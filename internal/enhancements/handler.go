package enhancements

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-enhancer/internal/extract"
	"resume-enhancer/internal/shared/server/middleware"
	"resume-enhancer/internal/shared/server/respond"
	"resume-enhancer/internal/shared/util"
)

const maxUploadSize = 10 << 20 // 10MB

// Handler wires HTTP handlers to the enhancement service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches enhancement routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/enhancements", h.create)
	rg.GET("/enhancements", h.list)
	rg.GET("/enhancements/:id", h.get)
	rg.GET("/documents/:id/enhancements", h.listBySource)
}

func (h *Handler) create(c *gin.Context) {
	req, ok := h.bindCreate(c)
	if !ok {
		return
	}
	if req.OwnerID == "" {
		req.OwnerID = middleware.OwnerIDFromContext(c)
	}
	middleware.SetOwnerID(c, req.OwnerID)
	c.Set(middleware.SourceDocumentIDKey, req.SourceDocumentID)

	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	wait, _ := strconv.ParseBool(c.Query("wait"))

	var rec Record
	var err error
	if wait {
		rec, err = h.Svc.Enhance(ctx, req.SourceDocumentID, req.OwnerID, req.Content)
	} else {
		rec, err = h.Svc.Start(ctx, req.SourceDocumentID, req.OwnerID, req.Content)
	}
	if rec.ID != "" {
		c.Set(middleware.EnhancementIDKey, rec.ID)
		c.Set(middleware.StatusTransitionKey, "pending->"+string(rec.Status))
	}
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		case rec.ID != "":
			// The run finished but its terminal state could not be stored.
			respond.Error(c, http.StatusInternalServerError, "persist_failed", "enhancement result could not be saved", gin.H{"id": rec.ID})
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to start enhancement", nil)
		}
		return
	}

	if wait {
		respond.OK(c, rec)
		return
	}
	location := strings.TrimSuffix(c.Request.URL.Path, "/") + "/" + rec.ID
	respond.Accepted(c, location, createResponse{ID: rec.ID, Status: rec.Status})
}

// bindCreate reads a JSON body, or a multipart form whose file is converted to text.
// An upload without sourceDocumentId is identified by its file name.
func (h *Handler) bindCreate(c *gin.Context) (createRequest, bool) {
	var req createRequest
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)
		if err := c.ShouldBind(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid form", nil)
			return req, false
		}
		fileHeader, err := c.FormFile("file")
		switch {
		case err == nil:
			text, ok := readUpload(c, fileHeader)
			if !ok {
				return req, false
			}
			req.Content = text
			if strings.TrimSpace(req.SourceDocumentID) == "" {
				req.SourceDocumentID, _ = util.SourceIDFromFileName(fileHeader.Filename)
			}
		case req.Content == "":
			respond.Error(c, http.StatusBadRequest, "validation_error", "file or content is required", nil)
			return req, false
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid JSON body", nil)
		return req, false
	}

	req.SourceDocumentID = strings.TrimSpace(req.SourceDocumentID)
	req.OwnerID = strings.TrimSpace(req.OwnerID)
	return req, true
}

func readUpload(c *gin.Context, fileHeader *multipart.FileHeader) (string, bool) {
	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return "", false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return "", false
	}
	text, err := extract.Text(c.Request.Context(), data, fileHeader.Header.Get("Content-Type"), fileHeader.Filename)
	if err != nil {
		switch {
		case errors.Is(err, extract.ErrUnsupported):
			respond.Error(c, http.StatusUnsupportedMediaType, "unsupported_media_type", err.Error(), nil)
		default:
			respond.Error(c, http.StatusUnprocessableEntity, "extraction_failed", err.Error(), nil)
		}
		return "", false
	}
	return text, true
}

func (h *Handler) get(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.EnhancementIDKey, id)

	rec, err := h.Svc.Get(c.Request.Context(), id)
	if err != nil {
		h.writeLookupError(c, err, "failed to fetch enhancement")
		return
	}
	respond.OK(c, rec)
}

func (h *Handler) list(c *gin.Context) {
	ownerID := strings.TrimSpace(c.Query("ownerId"))
	if ownerID == "" {
		ownerID = middleware.OwnerIDFromContext(c)
	}
	limit, offset := normalizePage(queryInt(c, "limit"), queryInt(c, "offset"))

	recs, err := h.Svc.ListByOwner(c.Request.Context(), ownerID, limit, offset)
	if err != nil {
		h.writeLookupError(c, err, "failed to list enhancements")
		return
	}
	respond.OK(c, listResponse{Items: recs, Limit: limit, Offset: offset})
}

func (h *Handler) listBySource(c *gin.Context) {
	sourceID := c.Param("id")
	c.Set(middleware.SourceDocumentIDKey, sourceID)

	recs, err := h.Svc.ListBySource(c.Request.Context(), sourceID)
	if err != nil {
		h.writeLookupError(c, err, "failed to list enhancements")
		return
	}
	respond.OK(c, listResponse{Items: recs})
}

func (h *Handler) writeLookupError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, ErrValidation):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "enhancement not found", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", message, nil)
	}
}

func queryInt(c *gin.Context, key string) int {
	v := c.Query(key)
	if v == "" {
		return 0
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return parsed
}
