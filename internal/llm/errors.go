package llm

import (
	"context"
	"errors"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// Failure is the coarse class of an upstream model error.
type Failure int

const (
	// FailureNoResponse covers network errors, timeouts and empty answers.
	FailureNoResponse Failure = iota
	FailureRateLimited
	FailureServer
	FailureClient
)

func (f Failure) String() string {
	switch f {
	case FailureRateLimited:
		return "rate_limited"
	case FailureServer:
		return "server_error"
	case FailureClient:
		return "client_error"
	default:
		return "no_response"
	}
}

// Classify maps err to a Failure class and the provider's message, if any.
func Classify(err error) (Failure, string) {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.HTTPStatusCode), apiErr.Message
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		msg := ""
		if reqErr.Err != nil {
			msg = reqErr.Err.Error()
		}
		return classifyStatus(reqErr.HTTPStatusCode), msg
	}
	return FailureNoResponse, ""
}

func classifyStatus(code int) Failure {
	switch {
	case code == http.StatusTooManyRequests:
		return FailureRateLimited
	case code >= 500:
		return FailureServer
	case code >= 400:
		return FailureClient
	default:
		return FailureNoResponse
	}
}

// Retryable reports whether another attempt may succeed.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrEmptyCompletion) {
		return false
	}
	switch f, _ := Classify(err); f {
	case FailureRateLimited, FailureServer, FailureNoResponse:
		return true
	default:
		return false
	}
}
