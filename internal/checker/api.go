package checker

// ApiResponse models the upstream section endpoint's response.
type ApiResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		AvailableSeats int    `json:"availableSeats"`
		Title          string `json:"title"`
	} `json:"data"`
}

// codeNotFound is the application code the upstream uses for an unknown CRN.
const codeNotFound = 404
