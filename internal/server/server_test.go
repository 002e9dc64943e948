package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/abramin/launchargs/internal/launch"
	"github.com/abramin/launchargs/internal/model"
	"github.com/abramin/launchargs/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const methodHandle = `=junit/src\/test\/java=/optional=/true=/=/maven.pomderived=/true=/=/test=/true=/<junit5{ParameterizedAnnotationTest.java[ParameterizedAnnotationTest~equal~I~I`

func setupTestServer(t *testing.T, withHistory bool) *Server {
	t.Helper()
	cfg := Config{Port: 8080, Resolver: launch.NewLocalResolver(nil)}
	if withHistory {
		st, err := store.Open(filepath.Join(t.TempDir(), store.DefaultDir))
		require.NoError(t, err)
		t.Cleanup(func() { st.Close() })
		cfg.History = st
	}
	s, err := New(cfg)
	require.NoError(t, err)
	return s
}

func do(t *testing.T, s *Server, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHandleHealth(t *testing.T) {
	s := setupTestServer(t, false)

	w := do(t, s, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestHandleResolve(t *testing.T) {
	s := setupTestServer(t, true)

	w := do(t, s, http.MethodPost, "/api/resolve", model.Request{
		ProjectName: "junit",
		TestLevel:   model.LevelMethod,
		TestKind:    model.KindJUnit5,
		TestNames:   []string{methodHandle},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp model.Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.NotNil(t, resp.Body)
	args := resp.Body.ProgramArguments
	assert.Equal(t, "junit5.ParameterizedAnnotationTest:equal(int,int)", args[len(args)-1])
	assert.Equal(t, "-test", args[len(args)-2])
	assert.Equal(t, launch.JUnitMainClass, resp.Body.MainClass)

	entries, err := s.history.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, []string{methodHandle}, entries[0].TestNames)
}

func TestHandleResolveNumericEnums(t *testing.T) {
	s := setupTestServer(t, false)

	body := []byte(`{"projectName":"junit","testLevel":6,"testKind":0,"testNames":["` +
		`=junit/src<junit5{FooTest.java[FooTest~run~QString;"]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/resolve", bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp model.Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	args := resp.Body.ProgramArguments
	assert.Equal(t, "junit5.FooTest:run(java.lang.String)", args[len(args)-1])
}

func TestHandleResolveErrors(t *testing.T) {
	tests := []struct {
		name   string
		method string
		body   any
		status int
	}{
		{"wrong method", http.MethodGet, nil, http.StatusMethodNotAllowed},
		{"empty names", http.MethodPost, model.Request{TestKind: model.KindJUnit5, TestLevel: model.LevelMethod}, http.StatusBadRequest},
		{"malformed handle", http.MethodPost, model.Request{
			TestKind:  model.KindJUnit5,
			TestLevel: model.LevelMethod,
			TestNames: []string{`=junit<junit5{FooTest.java`},
		}, http.StatusBadRequest},
		{"project level", http.MethodPost, model.Request{
			TestKind:  model.KindJUnit5,
			TestLevel: model.LevelProject,
			TestNames: []string{`=junit`},
		}, http.StatusBadRequest},
		{"no kind", http.MethodPost, model.Request{
			TestLevel: model.LevelMethod,
			TestNames: []string{methodHandle},
		}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := setupTestServer(t, true)
			w := do(t, s, tt.method, "/api/resolve", tt.body)
			assert.Equal(t, tt.status, w.Code)

			var resp map[string]any
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.NotEmpty(t, resp["error"])
			assert.NotContains(t, resp, "body")
		})
	}
}

func TestHandleResolveInvalidJSON(t *testing.T) {
	s := setupTestServer(t, false)
	req := httptest.NewRequest(http.MethodPost, "/api/resolve", bytes.NewReader([]byte(`{"testLevel":"galaxy"}`)))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type nilResolver struct{}

func (nilResolver) Resolve(context.Context, *model.Request) (*model.Response, error) {
	return &model.Response{}, nil
}

func TestHandleResolveUnavailable(t *testing.T) {
	s, err := New(Config{Resolver: nilResolver{}})
	require.NoError(t, err)

	w := do(t, s, http.MethodPost, "/api/resolve", model.Request{TestNames: []string{"x"}})
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestHandleHistoryAndStats(t *testing.T) {
	s := setupTestServer(t, true)

	do(t, s, http.MethodPost, "/api/resolve", model.Request{
		ProjectName: "junit", TestKind: model.KindJUnit5, TestLevel: model.LevelMethod, TestNames: []string{methodHandle},
	})
	do(t, s, http.MethodPost, "/api/resolve", model.Request{
		TestKind: model.KindJUnit5, TestLevel: model.LevelMethod, TestNames: []string{methodHandle + `~QBroken`},
	})

	w := do(t, s, http.MethodGet, "/api/history?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var entries []store.Resolution
	require.NoError(t, json.NewDecoder(w.Body).Decode(&entries))
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Failed())

	w = do(t, s, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats store.Stats
	require.NoError(t, json.NewDecoder(w.Body).Decode(&stats))
	assert.Equal(t, 2, stats.ResolutionCount)
	assert.Equal(t, 1, stats.FailureCount)
	assert.Equal(t, "junit", stats.LastProject)
	assert.NotEmpty(t, stats.SchemaVersion)

	w = do(t, s, http.MethodGet, "/api/history?limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHistoryDisabled(t *testing.T) {
	s := setupTestServer(t, false)
	for _, path := range []string{"/api/history", "/api/stats"} {
		w := do(t, s, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}
}

func TestCORSPreflight(t *testing.T) {
	s := setupTestServer(t, false)
	w := do(t, s, http.MethodOptions, "/api/resolve", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestNewRequiresResolver(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	s := setupTestServer(t, false)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	client := &http.Client{Timeout: 5 * time.Second}
	require.Eventually(t, func() bool {
		resp, err := client.Get("http://" + ln.Addr().String() + "/api/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)
	client.CloseIdleConnections()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
