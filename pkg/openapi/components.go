package openapi

import "maps"

// NewComponents creates Components with the shared page request schema
// and the error responses every handler can return.
func NewComponents() *Components {
	return &Components{
		Schemas: map[string]*Schema{
			"PageRequest": Object(nil, map[string]*Schema{
				"page":      {Type: "integer", Description: "Page number (1-indexed)", Example: 1},
				"page_size": {Type: "integer", Description: "Results per page", Example: 20},
				"search":    String("Search term"),
				"sort":      String("Comma-separated sort fields, - prefix for descending. Example: score,-detected_at"),
			}),
			"Error": Object([]string{"error"}, map[string]*Schema{
				"error": String("Error message"),
			}),
		},
		Responses: map[string]*Response{
			"BadRequest":         errorResponse("Invalid request"),
			"NotFound":           errorResponse("Resource not found"),
			"Conflict":           errorResponse("Resource conflict"),
			"PayloadTooLarge":    errorResponse("Request body exceeds the upload limit"),
			"ServiceUnavailable": errorResponse("Dependency unavailable"),
		},
	}
}

func errorResponse(description string) *Response {
	return ResponseJSON(description, "Error")
}

// AddSchemas merges the given schemas into the component schemas.
func (c *Components) AddSchemas(schemas map[string]*Schema) {
	maps.Copy(c.Schemas, schemas)
}

// AddResponses merges the given responses into the component responses.
func (c *Components) AddResponses(responses map[string]*Response) {
	maps.Copy(c.Responses, responses)
}
