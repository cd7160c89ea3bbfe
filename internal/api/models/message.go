package models

// MessageResponse is the body of plain JSON API replies.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorBody is the body of JSON API error replies.
type ErrorBody struct {
	Error string `json:"error"`
}
