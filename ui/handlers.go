package ui

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"sheetview/adapters/spreadsheet"
	"sheetview/internal/dataset"
	apperrors "sheetview/internal/errors"
	"sheetview/internal/session"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleFileUpload decodes an uploaded spreadsheet and makes it the current collection
func (s *Server) handleFileUpload(c *gin.Context) {
	file, header, err := c.Request.FormFile("dataset")
	if err != nil {
		log.Printf("[handleFileUpload] FAILED - No file uploaded: %v", err)
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"success": false, "error": "Upload exceeds the size limit"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "No file uploaded"})
		return
	}
	defer file.Close()

	if header.Size > s.config.MaxUploadBytes {
		log.Printf("[handleFileUpload] FAILED - File too large: %d bytes", header.Size)
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"success": false,
			"error":   fmt.Sprintf("File size (%.1f MB) exceeds the %.0f MB limit", mb(header.Size), mb(s.config.MaxUploadBytes)),
		})
		return
	}

	if !spreadsheet.IsSupportedExtension(header.Filename) {
		log.Printf("[handleFileUpload] FAILED - Invalid file extension: %s", header.Filename)
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Only Excel (.xlsx, .xls) and CSV (.csv) files are allowed"})
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		log.Printf("[handleFileUpload] FAILED - Could not read upload: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Could not read uploaded file"})
		return
	}

	log.Printf("[handleFileUpload] %s: %d bytes (request %s)", header.Filename, len(data), c.GetString("request_id"))
	res, err := s.session.Upload(c.Request.Context(), header.Filename, data)
	if err != nil {
		log.Printf("[handleFileUpload] FAILED - %v", err)
		c.JSON(statusFor(err), gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": res, "state": s.session.State()})
}

func (s *Server) handleDatasetState(c *gin.Context) {
	c.JSON(http.StatusOK, s.session.State())
}

func (s *Server) handleReset(c *gin.Context) {
	s.session.Reset(c.Request.Context())
	c.JSON(http.StatusOK, s.session.State())
}

func (s *Server) handleQuery(c *gin.Context) {
	var u session.QueryUpdate
	if err := c.ShouldBindJSON(&u); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid query: %v", err)})
		return
	}
	st, err := s.session.ApplyQuery(u)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) handleToggleSort(c *gin.Context) {
	sv, err := s.session.ToggleSort(c.Param("field"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sv)
}

func (s *Server) handleToggleColumn(c *gin.Context) {
	if err := s.session.ToggleColumn(c.Param("field")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.session.State())
}

func (s *Server) handleProfile(c *gin.Context) {
	p, err := s.session.Profile(c.Param("field"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// handleWindow returns the rows to render for a viewport. With index set, the viewport is first
// scrolled so that row is at the top.
func (s *Server) handleWindow(c *gin.Context) {
	height, err := queryInt(c, "height", 700)
	if err != nil {
		respondError(c, err)
		return
	}
	if idx := c.Query("index"); idx != "" {
		i, err := strconv.Atoi(idx)
		if err != nil {
			respondError(c, apperrors.InvalidInput("index must be an integer"))
			return
		}
		c.JSON(http.StatusOK, s.session.ScrollToIndex(i, height))
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.session.Window(offset, height))
}

type measureRequest struct {
	Index int `json:"index"`
	Size  int `json:"size"`
}

func (s *Server) handleMeasure(c *gin.Context) {
	var req measureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid measurement: %v", err)})
		return
	}
	if req.Size <= 0 {
		respondError(c, apperrors.InvalidInput("size must be positive"))
		return
	}
	c.JSON(http.StatusOK, s.session.Measure(req.Index, req.Size))
}

// handleRecords returns the whole filtered and sorted sequence
func (s *Server) handleRecords(c *gin.Context) {
	st := s.session.State()
	c.JSON(http.StatusOK, gin.H{
		"fields":  st.Visible,
		"count":   st.Count,
		"records": s.session.VisibleRecords(),
	})
}

func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, apperrors.InvalidInput(fmt.Sprintf("%s must be a non-negative integer", name))
	}
	return v, nil
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[%s %s] %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": apperrors.GetCode(err)})
}

func statusFor(err error) int {
	if errors.Is(err, dataset.ErrUnknownField) {
		return http.StatusNotFound
	}
	switch apperrors.GetCode(err) {
	case apperrors.CodeDecodeFailed:
		return http.StatusUnprocessableEntity
	case apperrors.CodeInvalidInput:
		return http.StatusBadRequest
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	case apperrors.CodeWorkerClosed:
		return http.StatusServiceUnavailable
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}

func mb(n int64) float64 {
	return float64(n) / (1024 * 1024)
}
