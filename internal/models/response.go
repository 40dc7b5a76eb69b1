package models

// APIResponse is the envelope every endpoint writes.
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Errors  interface{} `json:"errors,omitempty"`
	Detail  string      `json:"error,omitempty"`
}

// NewSuccessResponse creates a success response
func NewSuccessResponse(data interface{}) APIResponse {
	return APIResponse{
		Success: true,
		Data:    data,
	}
}

// NewMessageResponse creates a success response carrying only a message
func NewMessageResponse(message string, data interface{}) APIResponse {
	return APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	}
}

// NewErrorResponse creates an error response
func NewErrorResponse(message string) APIResponse {
	return APIResponse{
		Success: false,
		Message: message,
	}
}

// NewValidationErrorResponse creates a validation error response
func NewValidationErrorResponse(errors map[string]string) APIResponse {
	return APIResponse{
		Success: false,
		Message: "Validation failed",
		Errors:  errors,
	}
}

// Page is a normalized page request.
type Page struct {
	Number int
	Limit  int
}

func (p Page) Skip() int {
	return (p.Number - 1) * p.Limit
}

// NewPage clamps page and limit to sane values.
func NewPage(number, limit, defaultLimit, maxLimit int) Page {
	if number < 1 {
		number = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return Page{Number: number, Limit: limit}
}

type Pagination struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	Total       int64 `json:"total"`
	Limit       int   `json:"limit"`
	HasNext     bool  `json:"hasNext"`
	HasPrev     bool  `json:"hasPrev"`
}

func NewPagination(p Page, total int64) Pagination {
	pages := 0
	if p.Limit > 0 {
		pages = int((total + int64(p.Limit) - 1) / int64(p.Limit))
	}
	return Pagination{
		CurrentPage: p.Number,
		TotalPages:  pages,
		Total:       total,
		Limit:       p.Limit,
		HasNext:     p.Number < pages,
		HasPrev:     p.Number > 1,
	}
}

// ImageUploadResponse is returned after successful image upload
type ImageUploadResponse struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	Filename string `json:"filename"`
}
