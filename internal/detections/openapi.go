package detections

import "github.com/JaimeStill/linkguard/pkg/openapi"

var filterParams = []*openapi.Parameter{
	openapi.QueryParam("page", "integer", "Page number", false),
	openapi.QueryParam("page_size", "integer", "Results per page", false),
	openapi.QueryParam("search", "string", "Match url or threat label", false),
	openapi.QueryParam("sort", "string", "Sort fields", false),
	openapi.QueryParam("type", "string", "url, app, or content", false),
	openapi.QueryParam("status", "string", "Safe, Medium Risk, or High Risk", false),
	openapi.QueryParam("sector", "string", "Sector", false),
	openapi.QueryParam("source", "string", "api, batch, or a feed name", false),
	openapi.QueryParam("min_score", "integer", "Minimum score", false),
	openapi.QueryParam("max_score", "integer", "Maximum score", false),
}

var idParam = openapi.PathParam("id", "uuid", "Detection ID")

func detectOp(id, summary, request string) *openapi.Operation {
	return &openapi.Operation{
		OperationID: id,
		Summary:     summary,
		RequestBody: openapi.RequestBodyJSON(request, true),
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Scored detection", "DetectResponse"),
			400: openapi.ResponseRef("BadRequest"),
			413: openapi.ResponseRef("PayloadTooLarge"),
		},
	}
}

var listOp = &openapi.Operation{
	OperationID: "listDetections",
	Summary:     "List detections",
	Parameters:  filterParams,
	Responses: map[int]*openapi.Response{
		200: openapi.ResponseJSON("Detection page", "DetectionPage"),
	},
}

var searchOp = &openapi.Operation{
	OperationID: "searchDetections",
	Summary:     "Search detections",
	RequestBody: openapi.RequestBodyJSON("SearchRequest", false),
	Responses: map[int]*openapi.Response{
		200: openapi.ResponseJSON("Detection page", "DetectionPage"),
		400: openapi.ResponseRef("BadRequest"),
		413: openapi.ResponseRef("PayloadTooLarge"),
	},
}

var batchOp = &openapi.Operation{
	OperationID: "batchDetections",
	Summary:     "Score and persist a schema document",
	RequestBody: openapi.RequestBodyJSON("BatchSchema", true),
	Responses: map[int]*openapi.Response{
		200: openapi.ResponseJSON("Bucketed scores keyed by id", "BatchResult"),
		400: openapi.ResponseRef("BadRequest"),
		413: openapi.ResponseRef("PayloadTooLarge"),
		503: openapi.ResponseRef("ServiceUnavailable"),
	},
}

var findOp = &openapi.Operation{
	OperationID: "findDetection",
	Summary:     "Find a detection",
	Parameters:  []*openapi.Parameter{idParam},
	Responses: map[int]*openapi.Response{
		200: openapi.ResponseJSON("Detection", "Detection"),
		400: openapi.ResponseRef("BadRequest"),
		404: openapi.ResponseRef("NotFound"),
	},
}

var deleteOp = &openapi.Operation{
	OperationID: "deleteDetection",
	Summary:     "Delete a detection",
	Parameters:  []*openapi.Parameter{idParam},
	Responses: map[int]*openapi.Response{
		204: {Description: "Deleted"},
		400: openapi.ResponseRef("BadRequest"),
		404: openapi.ResponseRef("NotFound"),
	},
}

func schemas() map[string]*openapi.Schema {
	sector := openapi.String("Sector, default general")
	score := openapi.Integer("Risk score", 0, 100)
	status := openapi.Enum("Risk label", "Safe", "Medium Risk", "High Risk")
	kind := openapi.Enum("Artifact kind", "url", "app", "content")

	reason := openapi.Object(nil, map[string]*openapi.Schema{
		"reason": openapi.String("Explanation"),
		"points": {Type: "integer"},
	})

	bucket := openapi.MapOf("Scored entries keyed by item id", openapi.Object(nil, map[string]*openapi.Schema{
		"sector": openapi.String("Sector the item was scored under"),
		"score":  openapi.SchemaRef("DetectionRecord"),
	}))

	return map[string]*openapi.Schema{
		"DetectionRecord": openapi.Object(nil, map[string]*openapi.Schema{
			"type":      kind,
			"url":       openapi.String("Scored link"),
			"platform":  openapi.String("App platform"),
			"sector":    openapi.String("Sector"),
			"features":  openapi.MapOf("Extracted features", &openapi.Schema{}),
			"reasons":   openapi.ArrayOf(reason),
			"score":     score,
			"status":    status,
			"timestamp": {Type: "string", Format: "date-time"},
		}),
		"DetectResponse": openapi.Object([]string{"url", "result"}, map[string]*openapi.Schema{
			"id":     {Type: "string", Format: "uuid"},
			"url":    openapi.String("Scored link"),
			"result": openapi.SchemaRef("DetectionRecord"),
		}),
		"DetectURLRequest": openapi.Object([]string{"url"}, map[string]*openapi.Schema{
			"url":    openapi.String("Web URL"),
			"sector": sector,
		}),
		"DetectAppRequest": openapi.Object(nil, map[string]*openapi.Schema{
			"app_info": {Description: "Download link, or an object with url and platform"},
			"url":      openapi.String("Download link"),
			"platform": openapi.Enum("App platform", "android", "ios"),
			"sector":   sector,
		}),
		"DetectContentRequest": openapi.Object(nil, map[string]*openapi.Schema{
			"content": openapi.String("Content link"),
			"url":     openapi.String("Content link"),
			"sector":  sector,
		}),
		"Detection": openapi.Object(nil, map[string]*openapi.Schema{
			"id":           {Type: "string", Format: "uuid"},
			"type":         kind,
			"url":          openapi.String("Scored link"),
			"platform":     openapi.String("App platform"),
			"sector":       openapi.String("Sector"),
			"features":     openapi.MapOf("Extracted features", &openapi.Schema{}),
			"reasons":      openapi.ArrayOf(reason),
			"score":        score,
			"status":       status,
			"source":       openapi.String("api, batch, or feed name"),
			"threat_label": openapi.String("Feed threat label"),
			"detected_at":  {Type: "string", Format: "date-time"},
		}),
		"DetectionPage": openapi.Object(nil, map[string]*openapi.Schema{
			"data":        openapi.ArrayOf(openapi.SchemaRef("Detection")),
			"total":       {Type: "integer"},
			"page":        {Type: "integer"},
			"page_size":   {Type: "integer"},
			"total_pages": {Type: "integer"},
			"has_next":    {Type: "boolean"},
		}),
		"SearchRequest": openapi.Object(nil, map[string]*openapi.Schema{
			"page":      {Type: "integer"},
			"page_size": {Type: "integer"},
			"search":    openapi.String("Match url or threat label"),
			"sort":      openapi.String("Sort fields"),
			"type":      kind,
			"status":    status,
			"sector":    openapi.String("Sector"),
			"source":    openapi.String("api, batch, or a feed name"),
			"min_score": score,
			"max_score": score,
		}),
		"BatchSchema": openapi.Object(nil, map[string]*openapi.Schema{
			"urls":    openapi.MapOf("id to {url|link, sector}", &openapi.Schema{Type: "object"}),
			"apps":    openapi.MapOf("id to {link|url, platform, sector}", &openapi.Schema{Type: "object"}),
			"content": openapi.MapOf("id to {text|content|url, sector}", &openapi.Schema{Type: "object"}),
		}),
		"BatchResult": openapi.Object(nil, map[string]*openapi.Schema{
			"urls":    bucket,
			"apps":    bucket,
			"content": bucket,
		}),
	}
}
