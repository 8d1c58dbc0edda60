package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/novel-tts/backend/internal/model"
	"github.com/novel-tts/backend/internal/service"
)

// multipartOverhead leaves room for the form fields and part headers on top of
// the file size cap.
const multipartOverhead = 1 << 20

type NovelHandler struct {
	svc *service.NovelService
}

func NewNovelHandler(svc *service.NovelService) *NovelHandler {
	return &NovelHandler{svc: svc}
}

// Upload godoc
// @Summary Upload a novel
// @Tags novels
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Plain text (.txt) file"
// @Param title formData string true "Title"
// @Param description formData string false "Description"
// @Success 201 {object} model.NovelResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 413 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /novels/upload [post]
func (h *NovelHandler) Upload(c *gin.Context) {
	user := GetAuthUser(c)
	if user == nil {
		abortUnauthorized(c, "Not authenticated")
		return
	}

	if limit := h.svc.MaxUploadBytes(); limit > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+multipartOverhead)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeNovelError(c, service.ErrFileTooLarge)
			return
		}
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Detail: "file is required"})
		return
	}

	f, err := fh.Open()
	if err != nil {
		writeInternalError(c, err)
		return
	}
	defer f.Close()

	novel, err := h.svc.Upload(c.Request.Context(), user.ID, service.Upload{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		Filename:    fh.Filename,
		Size:        fh.Size,
		Body:        f,
	})
	if err != nil {
		writeNovelError(c, err)
		return
	}

	c.JSON(http.StatusCreated, model.NewNovelResponse(novel))
}

// List godoc
// @Summary List my novels
// @Tags novels
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.NovelResponse
// @Failure 401 {object} model.ErrorResponse
// @Router /novels [get]
func (h *NovelHandler) List(c *gin.Context) {
	user := GetAuthUser(c)
	if user == nil {
		abortUnauthorized(c, "Not authenticated")
		return
	}

	novels, err := h.svc.List(c.Request.Context(), user.ID)
	if err != nil {
		writeNovelError(c, err)
		return
	}

	resp := make([]model.NovelResponse, 0, len(novels))
	for i := range novels {
		resp = append(resp, model.NewNovelResponse(&novels[i]))
	}
	c.JSON(http.StatusOK, resp)
}

// Get godoc
// @Summary Get a novel
// @Tags novels
// @Produce json
// @Security BearerAuth
// @Param id path int true "Novel ID"
// @Success 200 {object} model.NovelResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /novels/{id} [get]
func (h *NovelHandler) Get(c *gin.Context) {
	user := GetAuthUser(c)
	if user == nil {
		abortUnauthorized(c, "Not authenticated")
		return
	}
	novelID, ok := parseNovelID(c)
	if !ok {
		return
	}

	novel, err := h.svc.Get(c.Request.Context(), user.ID, novelID)
	if err != nil {
		writeNovelError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.NewNovelResponse(novel))
}

// Sentences godoc
// @Summary List a novel's sentences
// @Tags novels
// @Produce json
// @Security BearerAuth
// @Param id path int true "Novel ID"
// @Success 200 {array} model.SentenceResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /novels/{id}/sentences [get]
func (h *NovelHandler) Sentences(c *gin.Context) {
	user := GetAuthUser(c)
	if user == nil {
		abortUnauthorized(c, "Not authenticated")
		return
	}
	novelID, ok := parseNovelID(c)
	if !ok {
		return
	}

	sentences, err := h.svc.Sentences(c.Request.Context(), user.ID, novelID)
	if err != nil {
		writeNovelError(c, err)
		return
	}

	resp := make([]model.SentenceResponse, 0, len(sentences))
	for i := range sentences {
		resp = append(resp, model.NewSentenceResponse(&sentences[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func parseNovelID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusUnprocessableEntity, model.ErrorResponse{Detail: "invalid novel id"})
		return 0, false
	}
	return id, true
}

func writeNovelError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Detail: err.Error()})
	case errors.Is(err, service.ErrFileTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, model.ErrorResponse{Detail: "File too large"})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, model.ErrorResponse{Detail: "Novel not found"})
	default:
		writeInternalError(c, err)
	}
}
