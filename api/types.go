package api

// routeHandlers contains all the handlers for different route types
type routeHandlers struct {
	projectHandler projectHandler
	authHandler    authHandler
	siteHandler    siteHandler
}

// ErrorResponse represents an error response from the API
// @Description Error response structure
type ErrorResponse struct {
	Success bool              `json:"success" example:"false"`
	Error   string            `json:"error" example:"validation failed"`
	Field   string            `json:"field,omitempty" example:"title"`
	Fields  map[string]string `json:"fields,omitempty"`
	Details string            `json:"details,omitempty" example:"title is required"`
}
