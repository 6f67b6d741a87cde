package backend

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	// ErrNotFound matches any *APIError carrying a 404.
	ErrNotFound = errors.New("not found")
	// ErrPollTimeout is returned by PollUntil when the job did not reach an
	// accepted state in time.
	ErrPollTimeout = errors.New("timed out waiting for job processing")
)

// APIError is a non-2xx answer from the backend. Code is the backend's
// "error" field, or the HTTP status text when the body did not carry one.
type APIError struct {
	StatusCode int
	Code       string
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Code + ": " + e.Detail
	}
	return e.Code
}

func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

const errorBodySchema = `{
	"type": "object",
	"properties": {
		"error": {"type": "string"},
		"detail": {"type": "string"}
	}
}`

var errorSchema = compileErrorSchema()

func compileErrorSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("error.json", strings.NewReader(errorBodySchema)); err != nil {
		panic(err)
	}
	return compiler.MustCompile("error.json")
}

type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// decodeError builds an *APIError from a failed response. Bodies that are
// not JSON, or whose fields have an unexpected shape, leave only the status text.
func decodeError(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode, Code: http.StatusText(resp.StatusCode)}
	if apiErr.Code == "" {
		apiErr.Code = resp.Status
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || len(raw) == 0 {
		return apiErr
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return apiErr
	}
	if err := errorSchema.Validate(v); err != nil {
		return apiErr
	}
	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return apiErr
	}
	if body.Error != "" {
		apiErr.Code = body.Error
	}
	apiErr.Detail = body.Detail
	return apiErr
}
