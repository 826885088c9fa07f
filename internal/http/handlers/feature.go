package handlers

import (
	"context"
	"fmt"

	"github.com/danielgtaylor/huma/v2"

	"github.com/clipsmith/clipsmith/internal/service"
)

// FeatureHandler exposes the feature configuration.
type FeatureHandler struct {
	features *service.FeatureService
}

// NewFeatureHandler creates a new feature handler.
func NewFeatureHandler(features *service.FeatureService) *FeatureHandler {
	return &FeatureHandler{features: features}
}

// Register registers the feature routes with the API.
func (h *FeatureHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "listFeatures",
		Method:      "GET",
		Path:        "/api/v1/features",
		Summary:     "List features",
		Description: "Returns all configured features",
		Tags:        []string{"Features"},
	}, h.List)

	huma.Register(api, huma.Operation{
		OperationID: "getFeature",
		Method:      "GET",
		Path:        "/api/v1/features/{id}",
		Summary:     "Get feature",
		Description: "Returns a feature configuration by ID",
		Tags:        []string{"Features"},
	}, h.Get)
}

// ListFeaturesInput is the input for listing features.
type ListFeaturesInput struct{}

// ListFeaturesOutput is the output for listing features.
type ListFeaturesOutput struct {
	Body struct {
		Features []service.Feature `json:"features"`
	}
}

// List returns all configured features.
func (h *FeatureHandler) List(ctx context.Context, input *ListFeaturesInput) (*ListFeaturesOutput, error) {
	resp := &ListFeaturesOutput{}
	resp.Body.Features = h.features.Features()
	return resp, nil
}

// GetFeatureInput is the input for getting a feature.
type GetFeatureInput struct {
	ID string `path:"id" doc:"Feature ID"`
}

// GetFeatureOutput is the output for getting a feature.
type GetFeatureOutput struct {
	Body service.Feature
}

// Get returns a feature configuration by ID.
func (h *FeatureHandler) Get(ctx context.Context, input *GetFeatureInput) (*GetFeatureOutput, error) {
	feature, err := h.features.Get(input.ID)
	if err != nil {
		return nil, huma.Error404NotFound(fmt.Sprintf("feature %s not found", input.ID))
	}
	return &GetFeatureOutput{Body: *feature}, nil
}
