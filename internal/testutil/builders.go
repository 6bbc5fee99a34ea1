package testutil

import (
	"encoding/json"
	"net/http"

	"github.com/target/reportfetch/internal/core"
)

// TokenResponse builds a token endpoint response body.
func TokenResponse(accessToken, baseURI string) *core.Response {
	return OKResponse(map[string]any{
		"access_token":             accessToken,
		"token_type":               "bearer",
		"expires_in":               json.Number("3600"),
		"resource_server_base_uri": baseURI,
	})
}

// JobStartedResponse builds a start-job response body.
func JobStartedResponse(jobID string) *core.Response {
	return OKResponse(map[string]any{"jobId": jobID})
}

// JobPendingResponse builds a status response without a result file URL.
func JobPendingResponse() *core.Response {
	return OKResponse(map[string]any{"jobResult": map[string]any{}})
}

// JobReadyResponse builds a status response carrying resultURL.
func JobReadyResponse(resultURL string) *core.Response {
	return OKResponse(map[string]any{
		"jobResult": map[string]any{"resultFileURL": resultURL, "state": "Finished"},
	})
}

// ReportFileResponse builds a download response carrying the base64 payload.
func ReportFileResponse(encoded string) *core.Response {
	return OKResponse(map[string]any{
		"files": map[string]any{"fileName": "report.csv", "file": encoded},
	})
}

// OKResponse wraps body in a 200 response.
func OKResponse(body any) *core.Response {
	return &core.Response{StatusCode: http.StatusOK, Body: body}
}

// StatusResponse builds a response with the given status and no body.
func StatusResponse(status int) *core.Response {
	return &core.Response{StatusCode: status}
}
