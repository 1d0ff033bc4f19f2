package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// apiErrorBody is the error envelope shared by the OpenAI-style and
// Anthropic APIs.
type apiErrorBody struct {
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error,omitempty"`
}

// errorTypeKinds maps provider error type strings to kinds.
var errorTypeKinds = map[string]ErrorKind{
	"insufficient_quota":    KindQuota,
	"rate_limit_error":      KindQuota,
	"rate_limit_exceeded":   KindQuota,
	"authentication_error":  KindAuth,
	"invalid_api_key":       KindAuth,
	"permission_error":      KindAuth,
	"invalid_request_error": KindAPI,
}

// postJSON sends body to url and decodes a 2xx response into out.
func postJSON(ctx context.Context, client *http.Client, provider, url string, headers map[string]string, body, out any) error {
	reqJSON, err := json.Marshal(body)
	if err != nil {
		return &CallError{Provider: provider, Kind: KindAPI, Err: fmt.Errorf("error marshaling request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqJSON))
	if err != nil {
		return &CallError{Provider: provider, Kind: KindAPI, Err: fmt.Errorf("error creating request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return &CallError{Provider: provider, Kind: KindNetwork, Err: fmt.Errorf("error sending request: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &CallError{Provider: provider, Kind: KindNetwork, StatusCode: resp.StatusCode, Err: fmt.Errorf("error reading response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(provider, resp.StatusCode, respBody)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return &CallError{Provider: provider, Kind: KindMalformedResponse, StatusCode: resp.StatusCode, Err: fmt.Errorf("error unmarshaling response: %w", err)}
	}
	return nil
}

func statusError(provider string, status int, body []byte) *CallError {
	kind := kindForStatus(status)
	msg := http.StatusText(status)

	var envelope apiErrorBody
	if json.Unmarshal(body, &envelope) == nil && envelope.Error != nil {
		msg = envelope.Error.Message
		if k, ok := errorTypeKinds[envelope.Error.Type]; ok && kind == KindAPI {
			kind = k
		}
		if code, ok := envelope.Error.Code.(string); ok {
			if k, ok := errorTypeKinds[code]; ok && kind == KindAPI {
				kind = k
			}
		}
	}
	return &CallError{Provider: provider, Kind: kind, StatusCode: status, Err: errors.New(msg)}
}

func malformed(provider, format string, args ...any) *CallError {
	return &CallError{Provider: provider, Kind: KindMalformedResponse, Err: fmt.Errorf(format, args...)}
}
