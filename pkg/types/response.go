// Package types holds the JSON envelopes every API response is wrapped in.
package types

// SuccessEnvelope wraps a payload as {"data": ...}.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// OutcomeBody is the payload of a wishlist mutation: the machine-readable
// outcome ("added", "already_present", "denied", ...) and its display label.
type OutcomeBody struct {
	Outcome string `json:"outcome"`
	Label   string `json:"label"`
}

// APIError is the public part of a failed request. Details is a field-keyed
// map for validation and submission failures and is omitted otherwise.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps an APIError as {"error": ...}.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
