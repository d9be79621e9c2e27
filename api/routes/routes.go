package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/feichai0017/slide-deidentifier/api/handlers"
	"github.com/feichai0017/slide-deidentifier/api/middleware"
)

// SetupRoutes configures all routes.
func SetupRoutes(r *gin.Engine, h *handlers.Handlers) {
	r.Use(middleware.CORS())

	v1 := r.Group("/api/v1")

	slides := v1.Group("/slides")
	{
		slides.POST("/process", h.Slide.ProcessSlide)
		slides.POST("/batch", h.Slide.ProcessBatch)
		slides.GET("/status/:taskId", h.Slide.GetStatus)
		slides.GET("/report/:taskId", h.Slide.GetReport)
		slides.GET("/download/:taskId", h.Slide.DownloadSlide)
		slides.DELETE("/task/:taskId", h.Slide.CancelTask)
	}
}
