package handlers

import (
	"github.com/feichai0017/slide-deidentifier/internal/service/slide"
	"github.com/feichai0017/slide-deidentifier/pkg/logger"
)

type Handlers struct {
	Slide *SlideHandler
}

func NewHandlers(
	slideService slide.SlideProcessor,
	logger logger.Logger,
) *Handlers {
	return &Handlers{
		Slide: NewSlideHandler(slideService, logger),
	}
}
