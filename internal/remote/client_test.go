package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/abramin/launchargs/internal/launch"
	"github.com/abramin/launchargs/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := New(srv.URL, time.Second, WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return c
}

func TestResolve(t *testing.T) {
	var got model.Request
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/resolve", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(model.Response{Body: &model.LaunchArguments{
			ProjectName:      "junit",
			MainClass:        launch.JUnitMainClass,
			ProgramArguments: []string{"-test", "junit5.FooTest:run()"},
		}})
	})

	c, err := New(srv.URL+"/", time.Second, WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	req := &model.Request{
		ProjectName: "junit",
		TestLevel:   model.LevelMethod,
		TestKind:    model.KindJUnit5,
		TestNames:   []string{"=junit/src<junit5{FooTest.java[FooTest~run"},
	}
	resp, err := c.Resolve(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, resp.Body)

	assert.Equal(t, *req, got)
	assert.Equal(t, []string{"-test", "junit5.FooTest:run()"}, resp.Body.ProgramArguments)
	assert.Equal(t, launch.JUnitMainClass, resp.Body.MainClass)
}

func TestResolveWithoutBody(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	c := newClient(t, srv)

	_, err := c.Resolve(context.Background(), &model.Request{})
	assert.ErrorIs(t, err, launch.ErrResolutionUnavailable)
}

func TestResolveServiceError(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"malformed handle"}`))
	})

	c := newClient(t, srv)

	_, err := c.Resolve(context.Background(), &model.Request{})
	require.Error(t, err)
	assert.ErrorIs(t, err, launch.ErrResolutionUnavailable)
	assert.Contains(t, err.Error(), "status 400")
	assert.Contains(t, err.Error(), "malformed handle")
}

func TestResolveHonoursContext(t *testing.T) {
	release := make(chan struct{})
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	c := newClient(t, srv)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Resolve(ctx, &model.Request{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "deadline"))
}

func TestNewRequiresEndpoint(t *testing.T) {
	_, err := New("", 0)
	assert.Error(t, err)
}

func TestPlannerOverRemote(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(model.Response{Body: &model.LaunchArguments{
			ProgramArguments: []string{"-version", "3", "-test", "a.B:c()"},
		}})
	})

	c := newClient(t, srv)

	p := launch.NewPlanner(c, launch.WithTags([]string{"fast"}))
	args, err := p.Plan(context.Background(), &model.Request{
		TestLevel: model.LevelMethod,
		TestKind:  model.KindJUnit5,
		TestNames: []string{"h"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"-version", "3", "--include-tag", "fast", "-test", "a.B:c()"}, args.ProgramArguments)
}
