//go:build integration

package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mbg-dapur/api/internal/config"
	"github.com/mbg-dapur/api/internal/database"
	"github.com/mbg-dapur/api/internal/router"
	"github.com/mbg-dapur/api/internal/ws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// TestIntegrationFlow exercises the full API against a real PostgreSQL
// database: auth, users, menu planning and the purchase order workflow
// including the websocket broadcast.
func TestIntegrationFlow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	connStr := setupPostgresContainer(t, ctx)
	require.NoError(t, database.Migrate(connStr))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	defer pool.Close()

	cfg := &config.Config{
		Port:               "8081",
		DatabaseURL:        connStr,
		JWTSecret:          "integration-test-secret",
		CORSAllowedOrigins: []string{"http://localhost:3000"},
	}
	hub := ws.NewHub()
	go hub.Run(ctx)

	server := httptest.NewServer(router.New(cfg, database.New(pool), pool, hub, zap.NewNop()))
	defer server.Close()

	// --- Bootstrap: one dapur and its owner, straight into the database ---
	dapurID := insertDapur(t, ctx, pool, "Dapur Cibubur")
	insertOwner(t, ctx, pool, dapurID, "owner@test.com", "password123")
	ownerToken := login(t, server, "owner@test.com", "password123")

	// --- Dapur and user management ---
	var other map[string]interface{}
	status := call(t, server, "POST", "/dapurs", ownerToken, map[string]string{"name": "Dapur Depok"}, &other)
	require.Equal(t, http.StatusCreated, status)
	otherID := int64(other["id"].(float64))

	status = call(t, server, "POST", fmt.Sprintf("/dapurs/%d/users", dapurID), ownerToken, map[string]string{
		"email": "gizi@test.com", "password": "password123", "full_name": "Ahli Gizi", "role": "AHLI_GIZI",
	}, nil)
	require.Equal(t, http.StatusCreated, status)
	giziToken := login(t, server, "gizi@test.com", "password123")

	// --- Menu planning ---
	var errBody map[string]interface{}
	status = call(t, server, "POST", "/menu-items/bulk-create", ownerToken, []interface{}{
		map[string]interface{}{"dapurId": dapurID, "date": "2024-01-01", "session": "pagi", "dishes": []string{}},
		map[string]interface{}{"dapurId": otherID},
	}, &errBody)
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "MISSING_DATE", errBody["code"])
	assert.Equal(t, float64(1), errBody["index"])
	assertMenuCount(t, ctx, pool, 0)

	status = call(t, server, "POST", "/menu-items/bulk-create", ownerToken, []interface{}{
		map[string]interface{}{"dapurId": dapurID, "date": "2024-01-01", "session": "pagi", "dishes": []string{}},
		map[string]interface{}{"dapurId": 999999, "date": "2024-01-01", "session": "pagi", "dishes": []string{}},
	}, &errBody)
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_DAPUR_ID", errBody["code"])
	assertMenuCount(t, ctx, pool, 0)

	var created []map[string]interface{}
	status = call(t, server, "POST", "/menu-items/bulk-create", giziToken, []interface{}{
		map[string]interface{}{"dapurId": dapurID, "date": "2024-01-01", "session": "pagi", "dishes": []string{"Bubur Ayam"}},
		map[string]interface{}{"dapurId": dapurID, "date": "2024-01-02", "session": "siang", "dishes": []string{"Nasi", "Ikan"}},
	}, &created)
	require.Equal(t, http.StatusCreated, status)
	require.Len(t, created, 2)
	assertMenuCount(t, ctx, pool, 2)

	status = call(t, server, "POST", "/menu-items", giziToken, map[string]interface{}{
		"dapurId": otherID, "date": "2024-01-01", "session": "pagi", "dishes": []string{},
	}, &errBody)
	require.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN_DAPUR", errBody["code"])

	var listed []map[string]interface{}
	status = call(t, server, "GET", "/menu-items", giziToken, nil, &listed)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, listed, 2)
	assert.Equal(t, "2024-01-02", listed[0]["date"])

	firstID := int64(created[0]["id"].(float64))
	var updated map[string]interface{}
	status = call(t, server, "PUT", fmt.Sprintf("/menu-items?id=%d", firstID), giziToken,
		map[string]interface{}{"session": "malam"}, &updated)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "malam", updated["session"])
	assert.Equal(t, []interface{}{"Bubur Ayam"}, updated["dishes"])

	var deleted map[string]interface{}
	status = call(t, server, "DELETE", fmt.Sprintf("/menu-items?id=%d", firstID), giziToken, nil, &deleted)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(firstID), deleted["id"])
	status = call(t, server, "DELETE", fmt.Sprintf("/menu-items?id=%d", firstID), giziToken, nil, nil)
	assert.Equal(t, http.StatusNotFound, status)

	// --- Purchase orders ---
	poBase := fmt.Sprintf("/dapurs/%d/purchase-orders", dapurID)

	status = call(t, server, "POST", poBase, giziToken, map[string]interface{}{"supplier_name": "X"}, nil)
	assert.Equal(t, http.StatusForbidden, status)

	var po map[string]interface{}
	status = call(t, server, "POST", poBase, ownerToken, map[string]interface{}{
		"supplier_name": "CV Sumber Pangan",
		"items": []map[string]interface{}{
			{"name": "Beras", "quantity": "50", "unit": "kg", "unit_price": "12500"},
			{"name": "Minyak Goreng", "quantity": "2.5", "unit": "liter", "unit_price": "17999.99"},
		},
	}, &po)
	require.Equal(t, http.StatusCreated, status)
	assert.Regexp(t, `^PO-\d{8}-001$`, po["po_number"])
	assert.Equal(t, "669999.98", po["total_amount"])
	assert.Equal(t, "OPEN", po["status"])
	poID := po["id"].(string)

	conn := dialWorkflows(t, server, dapurID, giziToken)
	defer conn.Close()

	var afterStep map[string]interface{}
	status = call(t, server, "PATCH", poBase+"/"+poID+"/steps/draft", ownerToken,
		map[string]interface{}{"status": "completed", "notes": "siap diajukan"}, &afterStep)
	require.Equal(t, http.StatusOK, status)
	summary := afterStep["summary"].(map[string]interface{})
	assert.Equal(t, float64(10), summary["progress"])
	assert.Equal(t, "approval", summary["current_step_id"])

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var event struct {
		Type    string                 `json:"type"`
		Payload map[string]interface{} `json:"payload"`
	}
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, "po_workflow_updated", event.Type)
	assert.Equal(t, poID, event.Payload["purchase_order_id"])

	status = call(t, server, "PATCH", poBase+"/"+poID+"/steps/draft", ownerToken,
		map[string]interface{}{"status": "pending"}, &errBody)
	require.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "INVALID_TRANSITION", errBody["code"])

	status = call(t, server, "PATCH", poBase+"/"+poID+"/steps/bogus", ownerToken,
		map[string]interface{}{"status": "completed"}, &errBody)
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "UNKNOWN_STEP", errBody["code"])

	var detail map[string]interface{}
	status = call(t, server, "GET", poBase+"/"+poID, giziToken, nil, &detail)
	require.Equal(t, http.StatusOK, status)
	steps := detail["workflow"].(map[string]interface{})["steps"].([]interface{})
	require.Len(t, steps, 10)
	draft := steps[0].(map[string]interface{})
	assert.Equal(t, "completed", draft["status"])
	assert.Equal(t, "Pemilik", draft["completed_by"])
	assert.NotEmpty(t, draft["completed_at_display"])

	// the order is not reachable through another dapur's path
	status = call(t, server, "GET", fmt.Sprintf("/dapurs/%d/purchase-orders/%s", otherID, poID), ownerToken, nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

// --- Setup helpers ---

func setupPostgresContainer(t *testing.T, ctx context.Context) string {
	t.Helper()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("mbg_test"),
		tcpostgres.WithUsername("mbg"),
		tcpostgres.WithPassword("mbg"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() {
		if err := pgContainer.Terminate(context.Background()); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "get connection string")
	return connStr
}

func insertDapur(t *testing.T, ctx context.Context, pool *pgxpool.Pool, name string) int64 {
	t.Helper()
	var id int64
	err := pool.QueryRow(ctx, `INSERT INTO dapurs (name) VALUES ($1) RETURNING id`, name).Scan(&id)
	require.NoError(t, err, "insert dapur")
	return id
}

func insertOwner(t *testing.T, ctx context.Context, pool *pgxpool.Pool, dapurID int64, email, password string) {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	_, err = pool.Exec(ctx,
		`INSERT INTO users (dapur_id, email, hashed_password, full_name, role) VALUES ($1, $2, $3, 'Pemilik', 'OWNER')`,
		dapurID, email, string(hashed))
	require.NoError(t, err, "insert owner")
}

func assertMenuCount(t *testing.T, ctx context.Context, pool *pgxpool.Pool, want int) {
	t.Helper()
	var n int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM menu_items`).Scan(&n))
	assert.Equal(t, want, n, "menu_items rows")
}

func login(t *testing.T, server *httptest.Server, email, password string) string {
	t.Helper()
	var resp map[string]interface{}
	status := call(t, server, "POST", "/auth/login", "", map[string]string{"email": email, "password": password}, &resp)
	require.Equal(t, http.StatusOK, status, "login %s", email)
	token, ok := resp["access_token"].(string)
	require.True(t, ok, "access_token missing")
	return token
}

// call sends a JSON request and decodes the response into out when non-nil.
func call(t *testing.T, server *httptest.Server, method, path, token string, body, out interface{}) int {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out), "%s %s", method, path)
	}
	return resp.StatusCode
}

func dialWorkflows(t *testing.T, server *httptest.Server, dapurID int64, token string) *websocket.Conn {
	t.Helper()
	url := fmt.Sprintf("%s/ws/dapurs/%d/workflows?token=%s", strings.Replace(server.URL, "http", "ws", 1), dapurID, token)
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err, "dial websocket")
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	// give the hub a moment to register the client
	time.Sleep(100 * time.Millisecond)
	return conn
}
