package api

import (
	"fmt"

	"github.com/JaimeStill/linkguard/internal/detections"
	"github.com/JaimeStill/linkguard/internal/feeds"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Detections detections.System
	Sectors    *feeds.Sectors
}

// NewDomain creates all domain systems from the API runtime. The sector
// keyword map is read from sectorsPath, or the built-in map when empty.
func NewDomain(runtime *Runtime, sectorsPath string) (*Domain, error) {
	var publisher detections.Publisher
	if runtime.Events != nil {
		publisher = runtime.Events
	}

	detectionsSystem := detections.New(
		runtime.Database.Connection(),
		runtime.Scoring,
		publisher,
		runtime.Logger,
		runtime.Pagination,
		runtime.BatchWorkers,
	)

	sectors, err := feeds.LoadSectors(sectorsPath)
	if err != nil {
		return nil, fmt.Errorf("load sectors: %w", err)
	}

	return &Domain{
		Detections: detectionsSystem,
		Sectors:    sectors,
	}, nil
}
