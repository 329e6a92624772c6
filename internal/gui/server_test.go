package gui

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/amsen20/leovnf/internal/config"
	"github.com/amsen20/leovnf/internal/metrics"
	"github.com/amsen20/leovnf/internal/model"
	"github.com/amsen20/leovnf/internal/model/testing_tool"
	"github.com/amsen20/leovnf/internal/scheduler"
	"github.com/amsen20/leovnf/internal/store"
	"github.com/amsen20/leovnf/sim"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setUpServer(t *testing.T) (*Server, *store.FileStore) {
	gin.SetMode(gin.TestMode)

	scenario, err := sim.Load(filepath.Join("..", "..", "sim", "scenario.json"))
	require.NoError(t, err)

	builder := testing_tool.New()
	builder.ImportVNFs([]*testing_tool.VNFDesc{
		{Name: "fw", Cpu: 1, Memory: 1, Storage: 10},
		{Name: "cache", Cpu: 2, Memory: 2, Storage: 20},
		{Name: "huge", Cpu: 64, Memory: 1, Storage: 1},
	})

	fs := store.NewFileStore(filepath.Join(t.TempDir(), "ns_vnf_config.json"))
	require.NoError(t, fs.Put(context.Background(), builder.GetNS("video", "fw", "cache")))
	require.NoError(t, fs.Put(context.Background(), builder.GetNS("bulk", "fw", "huge")))

	cfg := config.Default()
	cfg.PassTimeoutMs = 5000
	cfg.Migration.Rounds = 2

	reg := prometheus.NewRegistry()
	sched := scheduler.New(&cfg, scenario, scenario, fs, metrics.New(reg))
	sched.Now = func() time.Time { return time.Date(2024, 3, 1, 1, 0, 0, 0, time.UTC) }

	return New(sched, reg), fs
}

func serve(t *testing.T, server *Server, method string, target string) (*httptest.ResponseRecorder, map[string]interface{}) {
	recorder := httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, httptest.NewRequest(method, target, nil))

	body := make(map[string]interface{})
	if strings.HasPrefix(recorder.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	}

	return recorder, body
}

func TestListAndShow(t *testing.T) {
	server, _ := setUpServer(t)

	recorder, body := serve(t, server, http.MethodGet, "/ns")
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, []interface{}{"bulk", "video"}, body["ns"])

	recorder, body = serve(t, server, http.MethodGet, "/ns/video")
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "video", body["ns_name"])

	recorder, _ = serve(t, server, http.MethodGet, "/ns/missing")
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestPlacementRoute(t *testing.T) {
	server, fs := setUpServer(t)

	recorder, body := serve(t, server, http.MethodPost, "/ns/video/placement?commit=true")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, true, body["committed"])
	plan := body["plan"].(map[string]interface{})
	assert.Equal(t, []interface{}{"5", "6", "4"}, plan["path"])

	ns, err := fs.Get(context.Background(), "video")
	require.NoError(t, err)
	assert.Equal(t, []string{"5", "5", "5", "4"}, ns.Path)

	recorder, body = serve(t, server, http.MethodPost, "/ns/bulk/placement")
	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.NotEmpty(t, body["pass_id"])
	assert.NotNil(t, body["report"])

	recorder, _ = serve(t, server, http.MethodPost, "/ns/video/placement?commit=maybe")
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestMigrationRoute(t *testing.T) {
	server, _ := setUpServer(t)

	recorder, _ := serve(t, server, http.MethodPost, "/ns/video/vnfs/cache/migration")
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	recorder, _ = serve(t, server, http.MethodPost, "/ns/video/placement?commit=true")
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder, body := serve(t, server, http.MethodPost, "/ns/video/vnfs/cache/migration")
	require.Equal(t, http.StatusOK, recorder.Code)
	decision := body["decision"].(map[string]interface{})
	assert.Equal(t, "5", decision["target"])
	assert.Equal(t, false, body["committed"])
}

func TestResourceRoute(t *testing.T) {
	server, _ := setUpServer(t)

	recorder, _ := serve(t, server, http.MethodGet, "/resources/4")
	assert.Equal(t, http.StatusOK, recorder.Code)

	recorder, _ = serve(t, server, http.MethodGet, "/resources/99")
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestMetricsRoute(t *testing.T) {
	server, _ := setUpServer(t)

	serve(t, server, http.MethodPost, "/ns/video/placement")

	recorder, _ := serve(t, server, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `leovnf_passes_total{operation="placement",outcome="success"} 1`)
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusGatewayTimeout, StatusOf(model.ErrAborted))
	assert.Equal(t, http.StatusNotFound, StatusOf(model.ErrNotFound))
	assert.Equal(t, http.StatusBadRequest, StatusOf(model.ErrConfig))
	assert.Equal(t, http.StatusNotFound, StatusOf(store.ErrNoRecord))
}

func TestAddRoute(t *testing.T) {
	server, fs := setUpServer(t)

	draft := `{
		"ns_description": "edge chain",
		"source_latitude": 35.6892, "source_longitude": 51.389,
		"destination_latitude": 48.8566, "destination_longitude": 2.3522,
		"vnfs": [{"vnf_name": "fw", "cpu": 1, "memory": 1, "storage": 10}]
	}`
	put := func(target string, content string) *httptest.ResponseRecorder {
		recorder := httptest.NewRecorder()
		request := httptest.NewRequest(http.MethodPut, target, strings.NewReader(content))
		request.Header.Set("Content-Type", "application/json")
		server.Handler().ServeHTTP(recorder, request)
		return recorder
	}

	recorder := put("/ns/edge", draft)
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())
	assert.Contains(t, recorder.Body.String(), `"sat_id":-1`)

	ns, err := fs.Get(context.Background(), "edge")
	require.NoError(t, err)
	assert.Equal(t, "35.68920", ns.Source.Latitude)
	assert.Equal(t, 1, ns.VNFs[0].Id)
	assert.False(t, ns.IsPlaced())

	recorder, _ = serve(t, server, http.MethodPost, "/ns/edge/placement")
	assert.Equal(t, http.StatusOK, recorder.Code)

	assert.Equal(t, http.StatusBadRequest, put("/ns/broken", "{").Code)
	assert.Equal(t, http.StatusBadRequest, put("/ns/empty", `{"vnfs": []}`).Code)

	recorder, _ = serve(t, server, http.MethodGet, "/ns/empty")
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}
