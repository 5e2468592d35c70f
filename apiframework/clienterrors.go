package apiframework

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// HandleAPIError processes error responses from the API
func HandleAPIError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("API error with status %s (failed to read response body: %v): %w",
			resp.Status, err, errorForStatus(resp.StatusCode))
	}

	errorType, errorCode := getErrorTypeAndCode(resp.StatusCode)

	// Try OpenAI-style JSON error first, then the flat {"type": ...} shape.
	var apiErr struct {
		Error struct {
			Message string  `json:"message"`
			Type    string  `json:"type"`
			Param   *string `json:"param"`
			Code    string  `json:"code"`
		} `json:"error"`
	}
	if jsonErr := json.Unmarshal(body, &apiErr); jsonErr == nil && apiErr.Error.Message != "" {
		param := ""
		if apiErr.Error.Param != nil {
			param = *apiErr.Error.Param
		}
		if apiErr.Error.Type != "" {
			errorType = apiErr.Error.Type
		}
		if apiErr.Error.Code != "" {
			errorCode = apiErr.Error.Code
		}
		return &APIError{
			err:       errorForStatus(resp.StatusCode),
			status:    resp.StatusCode,
			message:   apiErr.Error.Message,
			param:     param,
			errorType: errorType,
			errorCode: errorCode,
		}
	}

	var flat struct {
		Type string `json:"type"`
	}
	if jsonErr := json.Unmarshal(body, &flat); jsonErr == nil && flat.Type != "" {
		return &APIError{
			err:       errorForStatus(resp.StatusCode),
			status:    resp.StatusCode,
			message:   fmt.Sprintf("API error %d: %s", resp.StatusCode, flat.Type),
			errorType: errorType,
			errorCode: flat.Type,
		}
	}

	bodyStr := string(body)
	if len(bodyStr) > 100 {
		bodyStr = bodyStr[:100] + "..."
	}
	return &APIError{
		err:       errorForStatus(resp.StatusCode),
		status:    resp.StatusCode,
		message:   fmt.Sprintf("API error %d: %s", resp.StatusCode, bodyStr),
		errorType: errorType,
		errorCode: errorCode,
	}
}
