package responses

// requestIDHeader is set by the request id middleware before any handler writes.
const requestIDHeader = "X-Request-Id"

// SuccessEnvelope wraps every 2xx payload.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// ErrorBody is the public shape of a failed request. RequestID echoes the
// X-Request-Id header so admins can quote it when reporting a failure.
type ErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}
