package response

// Response represents a standard API response format
type Response struct {
	Status     string      `json:"status"`      // "success" or "error"
	StatusCode int         `json:"status_code"` // HTTP status code
	Message    string      `json:"message,omitempty"`
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// PageData wraps a paginated list
type PageData struct {
	Items interface{} `json:"items"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

// Success returns a standard success response wrapping the data
func Success(statusCode int, data interface{}) Response {
	return Response{
		Status:     "success",
		StatusCode: statusCode,
		Data:       data,
	}
}

// Page returns a success response for a paginated list
func Page(statusCode int, items interface{}, total int64, page, limit int) Response {
	return Success(statusCode, PageData{Items: items, Total: total, Page: page, Limit: limit})
}

// Error returns a standard error response wrapping the error message.
// Message mirrors Error so clients can surface it verbatim.
func Error(statusCode int, err string) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		Message:    err,
		Error:      err,
	}
}

// ErrorWithData is an error response that also carries a payload
func ErrorWithData(statusCode int, err string, data interface{}) Response {
	resp := Error(statusCode, err)
	resp.Data = data
	return resp
}
