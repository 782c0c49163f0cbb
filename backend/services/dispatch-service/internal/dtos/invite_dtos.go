package dtos

// RespondResponse is the JSON rendition of an invite response outcome.
type RespondResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}
