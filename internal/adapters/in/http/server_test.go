package http_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"allocation/cmd"
	"allocation/internal/adapters/out/memory"
	"allocation/internal/adapters/out/notifications"
	"allocation/internal/core/application/messages"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nullPublisher struct{}

func (nullPublisher) Publish(context.Context, string, messages.Event) error { return nil }

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	root, err := cmd.NewCompositionRoot(cmd.Config{},
		cmd.WithUnitOfWorkFactory(memory.NewUnitOfWorkFactory(memory.NewStore())),
		cmd.WithNotifications(notifications.NewRecorder()),
		cmd.WithPublisher(nullPublisher{}),
		cmd.WithLogger(logger),
	)
	require.NoError(t, err)

	e := root.CreateHTTPServer()
	e.Logger.SetOutput(io.Discard)
	return e
}

func doJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestServer_CreateBatch(t *testing.T) {
	e := newTestServer(t)

	rec := doJSON(e, http.MethodPost, "/api/v1/batches",
		`{"ref": "batch-001", "sku": "CHAIR", "qty": 100}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestServer_CreateBatch_InvalidBody(t *testing.T) {
	e := newTestServer(t)

	rec := doJSON(e, http.MethodPost, "/api/v1/batches", `{"ref": "", "sku": "CHAIR", "qty": 100}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_CreateBatch_DuplicateRefConflicts(t *testing.T) {
	e := newTestServer(t)

	body := `{"ref": "batch-001", "sku": "CHAIR", "qty": 100}`
	require.Equal(t, http.StatusCreated, doJSON(e, http.MethodPost, "/api/v1/batches", body).Code)

	rec := doJSON(e, http.MethodPost, "/api/v1/batches", body)

	assert.Equal(t, http.StatusConflict, rec.Code,
		"a reused batch reference is a client error, not a server failure")
	assert.Contains(t, rec.Body.String(), "batch-001")
}

func TestServer_Allocate(t *testing.T) {
	e := newTestServer(t)
	require.Equal(t, http.StatusCreated, doJSON(e, http.MethodPost, "/api/v1/batches",
		`{"ref": "batch-001", "sku": "CHAIR", "qty": 100}`).Code)

	rec := doJSON(e, http.MethodPost, "/api/v1/allocate",
		`{"order_id": "order-1", "sku": "CHAIR", "qty": 10}`)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp struct {
		BatchRef string `json:"batchref"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "batch-001", resp.BatchRef)
}

func TestServer_Allocate_OutOfStock(t *testing.T) {
	e := newTestServer(t)
	require.Equal(t, http.StatusCreated, doJSON(e, http.MethodPost, "/api/v1/batches",
		`{"ref": "batch-001", "sku": "SOFA", "qty": 5}`).Code)

	rec := doJSON(e, http.MethodPost, "/api/v1/allocate",
		`{"order_id": "order-1", "sku": "SOFA", "qty": 50}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Allocate_UnknownSKU(t *testing.T) {
	e := newTestServer(t)

	rec := doJSON(e, http.MethodPost, "/api/v1/allocate",
		`{"order_id": "order-1", "sku": "GHOST", "qty": 1}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_GetAllocations(t *testing.T) {
	e := newTestServer(t)
	require.Equal(t, http.StatusCreated, doJSON(e, http.MethodPost, "/api/v1/batches",
		`{"ref": "batch-001", "sku": "CHAIR", "qty": 100}`).Code)
	require.Equal(t, http.StatusAccepted, doJSON(e, http.MethodPost, "/api/v1/allocate",
		`{"order_id": "order-1", "sku": "CHAIR", "qty": 10}`).Code)

	rec := doJSON(e, http.MethodGet, "/api/v1/allocations/order-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "batch-001")

	rec = doJSON(e, http.MethodGet, "/api/v1/allocations/order-2", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Health(t *testing.T) {
	e := newTestServer(t)

	rec := doJSON(e, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
}
