package responses

// SuccessEnvelope wraps every 2xx payload under a "data" key so clients can
// branch on the envelope shape instead of the status code alone.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// ErrorBody is the public shape of a request failure. Details only appears
// for codes whose metadata allows it.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps every non-2xx payload.
type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}
