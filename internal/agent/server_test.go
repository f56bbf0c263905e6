package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danmuck/managectl/internal/auth"
	"github.com/danmuck/managectl/internal/manage"
	"github.com/danmuck/managectl/internal/seeds"
	"github.com/danmuck/managectl/internal/seeds/django"
	"github.com/danmuck/managectl/internal/testutil/testlog"
	"github.com/danmuck/managectl/internal/tools"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	stdout   string
	stderr   string
	exitCode int32
	err      error
	lines    []string
}

func (r *stubRunner) Run(_ context.Context, cmd tools.Command) ([]byte, []byte, int32, error) {
	r.lines = append(r.lines, cmd.Line)
	return []byte(r.stdout), []byte(r.stderr), r.exitCode, r.err
}

func newTestServer(t *testing.T, r tools.CommandRunner) *Server {
	t.Helper()
	testlog.Start(t)
	gin.SetMode(gin.TestMode)

	reg := seeds.NewRegistry()
	if r != nil {
		seed := django.NewSeed(django.App{ID: "blog", AppPath: "/srv/blog"}, manage.NewManager(r))
		require.NoError(t, reg.Register(seed))
	}
	return New("agent-test", "127.0.0.1:0", nil, reg)
}

func serve(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.HTTPRouter().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealthAndReady(t *testing.T) {
	s := newTestServer(t, &stubRunner{})

	w := serve(s, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = serve(s, http.MethodGet, "/ready", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["ready"])
}

func TestReadyWithoutSeeds(t *testing.T) {
	s := newTestServer(t, nil)
	w := serve(s, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, &stubRunner{})
	serve(s, http.MethodGet, "/health", "")
	w := serve(s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "managectl_http_requests_total")
}

func TestListAndDescribeSeeds(t *testing.T) {
	s := newTestServer(t, &stubRunner{})

	w := serve(s, http.MethodGet, "/seeds", "")
	require.Equal(t, http.StatusOK, w.Code)
	list, ok := decode(t, w)["seeds"].([]any)
	require.True(t, ok)
	require.Len(t, list, 1)
	assert.Equal(t, "django.blog", list[0].(map[string]any)["id"])

	w = serve(s, http.MethodGet, "/seeds/django.blog", "")
	require.Equal(t, http.StatusOK, w.Code)
	ops, ok := decode(t, w)["operations"].([]any)
	require.True(t, ok)
	assert.Len(t, ops, len(manage.Subcommands))

	w = serve(s, http.MethodGet, "/seeds/django.nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestActionSuccess(t *testing.T) {
	r := &stubRunner{stdout: "Creating table auth_user\n"}
	s := newTestServer(t, r)

	w := serve(s, http.MethodPost, "/seeds/django.blog/actions/syncdb", `{"settings": "blog.settings"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "ok", body["status"])

	report, ok := body["report"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "python manage.py syncdb --noinput --settings=blog.settings", report["cmd"])
	assert.Equal(t, []any{"Creating table auth_user"}, report["changed"])
	assert.Equal(t, []string{"python manage.py syncdb --noinput --settings=blog.settings"}, r.lines)
}

func TestActionWithoutBody(t *testing.T) {
	s := newTestServer(t, &stubRunner{stdout: "0 errors found"})
	w := serve(s, http.MethodPost, "/seeds/django.blog/actions/validate", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	report := decode(t, w)["report"].(map[string]any)
	assert.Equal(t, false, report["changed"])
	assert.Equal(t, false, report["classified"])
}

func TestActionErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		path   string
		body   string
		runner *stubRunner
		status int
	}{
		{
			name:   "unknown seed",
			path:   "/seeds/django.nope/actions/flush",
			runner: &stubRunner{},
			status: http.StatusNotFound,
		},
		{
			name:   "unknown action",
			path:   "/seeds/django.blog/actions/migrate",
			runner: &stubRunner{},
			status: http.StatusNotFound,
		},
		{
			name:   "missing required param",
			path:   "/seeds/django.blog/actions/loaddata",
			runner: &stubRunner{},
			status: http.StatusUnprocessableEntity,
		},
		{
			name:   "incompatible param",
			path:   "/seeds/django.blog/actions/flush",
			body:   `{"fixtures": "posts.json"}`,
			runner: &stubRunner{},
			status: http.StatusUnprocessableEntity,
		},
		{
			name:   "conflicting spellings",
			path:   "/seeds/django.blog/actions/validate",
			body:   `{"pythonpath": "/one", "python_path": "/two"}`,
			runner: &stubRunner{},
			status: http.StatusUnprocessableEntity,
		},
		{
			name:   "malformed body",
			path:   "/seeds/django.blog/actions/flush",
			body:   `{"settings":`,
			runner: &stubRunner{},
			status: http.StatusBadRequest,
		},
		{
			name:   "command failure",
			path:   "/seeds/django.blog/actions/flush",
			runner: &stubRunner{stderr: "Traceback", exitCode: 1, err: errors.New("exit status 1")},
			status: http.StatusBadGateway,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(t, tc.runner)
			w := serve(s, http.MethodPost, tc.path, tc.body)
			assert.Equal(t, tc.status, w.Code, w.Body.String())
			assert.NotEmpty(t, decode(t, w)["error"])
		})
	}
}

func TestActionFailureCarriesReport(t *testing.T) {
	s := newTestServer(t, &stubRunner{stdout: "partial", stderr: "Traceback", exitCode: 1, err: errors.New("exit status 1")})
	w := serve(s, http.MethodPost, "/seeds/django.blog/actions/flush", "")
	require.Equal(t, http.StatusBadGateway, w.Code)

	body := decode(t, w)
	assert.Equal(t, float64(1), body["exit_code"])
	report := body["report"].(map[string]any)
	assert.Equal(t, true, report["failed"])
	assert.Equal(t, "Traceback", report["stderr"])
	assert.Equal(t, "python manage.py flush --noinput", report["cmd"])
}

func TestStatusForContextErrors(t *testing.T) {
	assert.Equal(t, http.StatusGatewayTimeout, statusFor(context.DeadlineExceeded))
	assert.Equal(t, http.StatusBadGateway, statusFor(manage.ErrExecution))
}

func TestActionRequiresToken(t *testing.T) {
	r := &stubRunner{}
	s := newTestServer(t, r)
	s.Auth = auth.StaticToken{Token: "s3cret"}

	w := serve(s, http.MethodPost, "/seeds/django.blog/actions/validate", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, r.lines)

	req := httptest.NewRequest(http.MethodPost, "/seeds/django.blog/actions/validate", nil)
	req.Header.Set(auth.HeaderAuthorization, "Bearer s3cret")
	w = httptest.NewRecorder()
	s.HTTPRouter().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// read-only routes stay open
	assert.Equal(t, http.StatusOK, serve(s, http.MethodGet, "/seeds", "").Code)
}
