package runs

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Feature implements the runs feature.
type Feature struct {
	handler *Handler
}

// NewFeature creates the runs feature.
func NewFeature(base context.Context, runner *Runner, logger *zap.Logger) *Feature {
	return &Feature{handler: NewHandler(base, runner, logger)}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "runs"
}

// IsEnabled checks if the feature is enabled.
func (f *Feature) IsEnabled() bool {
	return true
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app)
	return nil
}
