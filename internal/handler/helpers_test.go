package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/mbg-dapur/api/internal/auth"
	"github.com/mbg-dapur/api/internal/middleware"
)

const testJWTSecret = "test-secret-for-handlers"

// testSession builds a session for dapurID with role.
func testSession(dapurID int64, role string) *middleware.Session {
	return &middleware.Session{UserID: uuid.New(), DapurID: dapurID, Role: role}
}

func encodeBody(t *testing.T, body interface{}) *bytes.Reader {
	t.Helper()
	switch b := body.(type) {
	case nil:
		return bytes.NewReader(nil)
	case string:
		return bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		return bytes.NewReader(raw)
	}
}

func doRequest(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, encodeBody(t, body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

// doAuthRequest signs a real JWT for session so requests pass through
// middleware.Authenticate. A string body is sent verbatim.
func doAuthRequest(t *testing.T, router http.Handler, method, path string, body interface{}, session *middleware.Session) *httptest.ResponseRecorder {
	t.Helper()

	token, err := auth.GenerateToken(testJWTSecret, session.UserID, session.DapurID, session.Role)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	req := httptest.NewRequest(method, path, encodeBody(t, body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+token)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v; body: %s", err, rr.Body.String())
	}
	return resp
}

func decodeListResponse(t *testing.T, rr *httptest.ResponseRecorder) []map[string]interface{} {
	t.Helper()
	var resp []map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode list response: %v; body: %s", err, rr.Body.String())
	}
	return resp
}

// assertError checks status and the machine-readable code of an error body.
func assertError(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) map[string]interface{} {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, status, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["code"] != code {
		t.Fatalf("code: got %v, want %s; body: %v", resp["code"], code, resp)
	}
	if msg, _ := resp["error"].(string); msg == "" {
		t.Errorf("expected non-empty error message")
	}
	return resp
}
