package apperr

// Response is the JSON body returned by the upload boundary on failure.
type Response struct {
	Error Body `json:"error"`
}

// Body carries the fields an operator needs without reading raw logs.
type Body struct {
	Code    string         `json:"code"`
	Kind    Kind           `json:"kind"`
	Stage   string         `json:"stage,omitempty"`
	Message string         `json:"message"`
	Raw     string         `json:"raw,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// ToResponse converts the error for JSON serialization.
func (e *Error) ToResponse() Response {
	msg := e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return Response{Error: Body{
		Code:    e.Kind.Code(),
		Kind:    e.Kind,
		Stage:   e.Stage,
		Message: msg,
		Raw:     e.Raw,
		Details: e.Details,
	}}
}
