package dto

type GenerateNotesRequest struct {
	Text string `json:"text"`
}

type GenerateNotesResponse struct {
	Output string `json:"output"`
}

// QuotaErrorResponse names the exceeded window so the client can explain
// which limit the user hit.
type QuotaErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
	Scope   string `json:"scope"`
}

type ExtractResponse struct {
	Pages string `json:"pages"`
	Text  string `json:"text"`
}
