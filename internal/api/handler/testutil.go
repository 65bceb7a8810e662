package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/verustcode/materiality/internal/api/middleware"
)

// SetupTestRouter creates a Gin router for testing with the request id and
// error handler middleware the API runs with.
func SetupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.ErrorHandler(true))
	return r
}

// CreateTestRequest creates an HTTP request for testing.
// A non-nil body is sent as JSON.
func CreateTestRequest(method, url string, body interface{}) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req, _ = http.NewRequest(method, url, bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, url, nil)
	}
	return req
}

// Serve runs req through r and returns the recorder.
func Serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// DecodeJSON unmarshals the response body into v, failing the test on error.
func DecodeJSON(t *testing.T, recorder *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), v); err != nil {
		t.Fatalf("Response should be valid JSON: %v\nbody: %s", err, recorder.Body.String())
	}
}

// AssertJSONResponse asserts the status and that every key of expectedBody
// appears in the response with an equal value.
func AssertJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, expectedStatus int, expectedBody map[string]interface{}) {
	t.Helper()
	if recorder.Code != expectedStatus {
		t.Errorf("Status code mismatch: got %d, want %d\nbody: %s", recorder.Code, expectedStatus, recorder.Body.String())
	}

	var actual map[string]interface{}
	DecodeJSON(t, recorder, &actual)
	for key, want := range expectedBody {
		got, exists := actual[key]
		if !exists {
			t.Errorf("Response should contain key: %s", key)
			continue
		}
		if got != want {
			t.Errorf("Value mismatch for key %s: got %v, want %v", key, got, want)
		}
	}
}

// AssertErrorResponse asserts an error response {code, message} with the given
// status and error code.
func AssertErrorResponse(t *testing.T, recorder *httptest.ResponseRecorder, expectedStatus int, expectedCode string) {
	t.Helper()
	if recorder.Code != expectedStatus {
		t.Errorf("Status code mismatch: got %d, want %d\nbody: %s", recorder.Code, expectedStatus, recorder.Body.String())
	}

	var response map[string]interface{}
	DecodeJSON(t, recorder, &response)
	if _, ok := response["message"]; !ok {
		t.Error("Error response should contain a message")
	}
	if code, _ := response["code"].(string); code != expectedCode {
		t.Errorf("Error code mismatch: got %q, want %q", code, expectedCode)
	}
}
