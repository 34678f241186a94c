package client

import (
	"context"

	"github.com/menta2k/roast-cam/pkg/types"
)

// VisionClient is a multimodal model backend
type VisionClient interface {
	// SimpleQuery sends a free-form prompt with an image and returns the
	// model's plain text answer
	SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error)
	// GenerateRoasts asks for the three roast variants as structured output
	GenerateRoasts(ctx context.Context, model string, req types.RoastRequest) (*types.Roasts, error)
}
