package client

import (
	"context"

	"github.com/menta2k/smart-cropper/pkg/types"
)

// VisionClient is a model server able to look at an image
type VisionClient interface {
	// Ping checks that the server is reachable
	Ping(ctx context.Context) error
	SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error)
	DetectRegions(ctx context.Context, query types.RegionQuery) (*types.RegionAnalysis, error)
}
