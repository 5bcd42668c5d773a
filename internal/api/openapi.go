package api

import (
	"github.com/JaimeStill/linkguard/internal/config"
	"github.com/JaimeStill/linkguard/pkg/openapi"
	"github.com/JaimeStill/linkguard/pkg/routes"
)

var tags = []openapi.Tag{
	{Name: "Detect", Description: "Score a single link and persist the result"},
	{Name: "Detections", Description: "Browse and manage persisted detections"},
	{Name: "Feeds", Description: "Ingest threat feeds held in blob storage"},
	{Name: "Storage", Description: "Blob storage for feeds and scoring artifacts"},
	{Name: "Scoring", Description: "Inspect and reload the scoring snapshot"},
}

// NewSpec builds the OpenAPI document from the operations carried by
// groups. Paths are relative to the configured base path, which is listed
// as the server.
func NewSpec(cfg *config.Config, groups ...routes.Group) (*openapi.Spec, error) {
	spec := openapi.NewSpec(cfg.API.OpenAPI.Title, cfg.Version)
	spec.SetDescription(cfg.API.OpenAPI.Description)
	spec.AddServer(cfg.API.BasePath)

	for _, t := range tags {
		spec.AddTag(t.Name, t.Description)
	}

	if err := routes.Document(spec, groups...); err != nil {
		return nil, err
	}
	return spec, nil
}
