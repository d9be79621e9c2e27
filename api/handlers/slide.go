package handlers

import (
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/feichai0017/slide-deidentifier/internal/service/slide"
	"github.com/feichai0017/slide-deidentifier/pkg/logger"
)

type SlideHandler struct {
	service slide.SlideProcessor
	logger  logger.Logger
}

// ProcessResponse describes an accepted slide task.
type ProcessResponse struct {
	TaskID    string `json:"taskId"`
	Status    string `json:"status"`
	Filename  string `json:"filename"`
	FileSize  int64  `json:"fileSize"`
	CreatedAt string `json:"createdAt"`
}

// ErrorResponse describes a failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func NewSlideHandler(service slide.SlideProcessor, logger logger.Logger) *SlideHandler {
	return &SlideHandler{
		service: service,
		logger:  logger,
	}
}

// ProcessSlide accepts one slide upload.
func (h *SlideHandler) ProcessSlide(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		h.handleError(c, http.StatusBadRequest, "Invalid file upload", err)
		return
	}
	defer file.Close()

	task, err := h.service.ProcessSlide(c.Request.Context(), file, header)
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to process slide", err)
		return
	}

	c.JSON(http.StatusOK, ProcessResponse{
		TaskID:    task.ID,
		Status:    string(task.Status),
		Filename:  header.Filename,
		FileSize:  header.Size,
		CreatedAt: task.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// ProcessBatch accepts several slide uploads.
func (h *SlideHandler) ProcessBatch(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		h.handleError(c, http.StatusBadRequest, "Invalid form data", err)
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		h.handleError(c, http.StatusBadRequest, "No files provided", nil)
		return
	}

	tasks, err := h.service.ProcessBatch(c.Request.Context(), files)
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to process slides", err)
		return
	}

	responses := make([]ProcessResponse, len(tasks))
	for i, task := range tasks {
		responses[i] = ProcessResponse{
			TaskID:    task.ID,
			Status:    string(task.Status),
			Filename:  task.Metadata["filename"],
			CreatedAt: task.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("Processing %d slides", len(tasks)),
		"tasks":   responses,
	})
}

// GetStatus reports task progress.
func (h *SlideHandler) GetStatus(c *gin.Context) {
	taskID := c.Param("taskId")
	if taskID == "" {
		h.handleError(c, http.StatusBadRequest, "Task ID is required", nil)
		return
	}

	task, err := h.service.GetProcessingStatus(c.Request.Context(), taskID)
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to get status", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"taskId":    task.ID,
		"status":    string(task.Status),
		"progress":  task.Progress,
		"error":     task.Error,
		"createdAt": task.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		"updatedAt": task.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// GetReport returns the audit report of a completed task.
func (h *SlideHandler) GetReport(c *gin.Context) {
	taskID := c.Param("taskId")
	if taskID == "" {
		h.handleError(c, http.StatusBadRequest, "Task ID is required", nil)
		return
	}

	report, err := h.service.GetDeidReport(c.Request.Context(), taskID)
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to get report", err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// DownloadSlide streams the deidentified slide.
func (h *SlideHandler) DownloadSlide(c *gin.Context) {
	taskID := c.Param("taskId")
	if taskID == "" {
		h.handleError(c, http.StatusBadRequest, "Task ID is required", nil)
		return
	}

	report, err := h.service.GetDeidReport(c.Request.Context(), taskID)
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to get report", err)
		return
	}

	reader, err := h.service.OpenDeidentified(c.Request.Context(), taskID)
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to open slide", err)
		return
	}
	defer reader.Close()

	filename := fmt.Sprintf("deid_%s%s", taskID, filepath.Ext(report.OutputKey))
	extraHeaders := map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%s", filename),
	}
	c.DataFromReader(http.StatusOK, report.SlideSize, "application/octet-stream", reader, extraHeaders)
}

// CancelTask cancels a pending task.
func (h *SlideHandler) CancelTask(c *gin.Context) {
	taskID := c.Param("taskId")
	if taskID == "" {
		h.handleError(c, http.StatusBadRequest, "Task ID is required", nil)
		return
	}

	if err := h.service.CancelTask(c.Request.Context(), taskID); err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to cancel task", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Task cancelled successfully",
		"taskId":  taskID,
	})
}

// handleError logs and renders a uniform error response.
func (h *SlideHandler) handleError(c *gin.Context, status int, message string, err error) {
	h.logger.Error(message,
		logger.String("path", c.Request.URL.Path),
		logger.Error(err),
	)

	response := ErrorResponse{
		Message: message,
	}
	if err != nil {
		response.Error = err.Error()
	}

	c.JSON(status, response)
}
