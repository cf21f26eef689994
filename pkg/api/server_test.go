package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-uaspace/pkg/api/middleware"
	"github.com/dd0wney/cluso-uaspace/pkg/auth"
	"github.com/dd0wney/cluso-uaspace/pkg/bootstrap"
	"github.com/dd0wney/cluso-uaspace/pkg/browse"
	"github.com/dd0wney/cluso-uaspace/pkg/config"
	"github.com/dd0wney/cluso-uaspace/pkg/history"
	"github.com/dd0wney/cluso-uaspace/pkg/logging"
	"github.com/dd0wney/cluso-uaspace/pkg/objects"
	"github.com/dd0wney/cluso-uaspace/pkg/sample"
	"github.com/dd0wney/cluso-uaspace/pkg/ua"
)

type testServer struct {
	rt  *bootstrap.Runtime
	srv *Server
}

func newTestServer(t *testing.T, start bool, mutate func(*config.Config)) *testServer {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}
	require.NoError(t, cfg.Validate())
	rt, err := bootstrap.New(cfg, bootstrap.WithLogger(logging.NewNopLogger()))
	require.NoError(t, err)
	t.Cleanup(func() { rt.Close() })
	if start {
		require.NoError(t, rt.Start(context.Background()))
	}
	srv, err := NewServer(rt)
	require.NoError(t, err)
	return &testServer{rt: rt, srv: srv}
}

func (ts *testServer) do(t *testing.T, method, path string, body any, setup ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	for _, f := range setup {
		f(req)
	}
	rec := httptest.NewRecorder()
	ts.srv.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func nodePath(id ua.NodeID) string {
	return "/v1/nodes/" + url.PathEscape(id.String())
}

func TestServer_NotReady(t *testing.T) {
	ts := newTestServer(t, false, nil)

	rec := ts.do(t, http.MethodGet, "/v1/namespaces", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	rec = ts.do(t, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	rec = ts.do(t, http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, ts.rt.Start(context.Background()))
	rec = ts.do(t, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_Namespaces(t *testing.T) {
	ts := newTestServer(t, true, nil)
	rec := ts.do(t, http.MethodGet, "/v1/namespaces", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list []struct {
		Index int    `json:"index"`
		URI   string `json:"uri"`
		Nodes int    `json:"nodes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.GreaterOrEqual(t, len(list), 2)
	assert.Equal(t, ua.NamespaceURIStandard, list[0].URI)
	assert.Positive(t, list[0].Nodes)
}

func TestServer_Node(t *testing.T) {
	ts := newTestServer(t, true, nil)
	ns := ts.rt.Services().Objects.Namespace()

	rec := ts.do(t, http.MethodGet, nodePath(objects.InstanceID(ns, sample.RoomType, "101")), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	node := decode[ua.Node](t, rec)
	assert.Equal(t, "Office", node.DisplayName.Text)
	assert.Equal(t, ua.NodeClassObject, node.Class)

	rec = ts.do(t, http.MethodGet, nodePath(objects.InstanceID(ns, sample.RoomType, "999")), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decode[ErrorResponse](t, rec).Message, "BadNodeIdUnknown")

	rec = ts.do(t, http.MethodGet, "/v1/nodes/"+url.PathEscape("x=1"), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_NodeReferences(t *testing.T) {
	ts := newTestServer(t, true, nil)
	rec := ts.do(t, http.MethodGet, nodePath(ua.ObjectsFolder)+"/references", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	refs := decode[[]ua.ReferenceDescription](t, rec)
	var names []string
	for _, r := range refs {
		names = append(names, r.BrowseName.Name)
	}
	assert.Contains(t, names, sample.RootFolder)
	assert.Contains(t, names, "Root", "inverse Organizes from the root folder")
}

func TestServer_Browse(t *testing.T) {
	ts := newTestServer(t, true, nil)
	req := browse.Request{
		RequestHandle: 7,
		NodesToBrowse: []browse.Description{
			{NodeID: ua.ObjectsFolder, Direction: ua.BrowseDirectionForward, ReferenceTypeID: ua.Organizes, ResultMask: ua.ResultMaskAll},
			{NodeID: ua.NewStringNodeID(2, "Nope:1"), ResultMask: ua.ResultMaskAll},
		},
	}
	rec := ts.do(t, http.MethodPost, "/v1/browse", req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[browse.Response](t, rec)
	assert.Equal(t, uint32(7), resp.RequestHandle)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, ua.StatusGood, resp.Results[0].StatusCode)
	assert.NotEmpty(t, resp.Results[0].References)
	assert.Equal(t, ua.StatusGood, resp.Results[1].StatusCode, "unknown nodes browse empty")
	assert.Empty(t, resp.Results[1].References)

	rec = ts.do(t, http.MethodPost, "/v1/browse", browse.Request{})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ua.StatusBadNothingToDo, decode[browse.Response](t, rec).ServiceResult)
}

func TestServer_BadBodies(t *testing.T) {
	ts := newTestServer(t, true, nil)

	rec := ts.do(t, http.MethodPost, "/v1/browse", map[string]any{"unknownField": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	big := strings.Repeat("x", MaxBodyBytes+1)
	rec = ts.do(t, http.MethodPost, "/v1/browse", nil, func(r *http.Request) {
		r.Body = io.NopCloser(strings.NewReader(`{"nodesToBrowse":"` + big + `"}`))
		r.ContentLength = -1
	})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestServer_UnsupportedServices(t *testing.T) {
	ts := newTestServer(t, true, nil)
	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/v1/nodes"},
		{http.MethodDelete, nodePath(ua.ObjectsFolder)},
		{http.MethodPost, "/v1/references"},
		{http.MethodDelete, "/v1/references"},
		{http.MethodPost, "/v1/browse/next"},
		{http.MethodPost, "/v1/register"},
		{http.MethodPost, "/v1/unregister"},
		{http.MethodPost, "/v1/query"},
		{http.MethodPost, "/v1/query/next"},
	} {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rec := ts.do(t, tc.method, tc.path, nil)
			require.Equal(t, http.StatusNotImplemented, rec.Code)
			assert.Equal(t, ua.StatusBadServiceUnsupported, decode[ServiceResponse](t, rec).ServiceResult)
		})
	}

	rec := ts.do(t, http.MethodPost, "/v1/translate", TranslateRequest{BrowsePaths: []browse.BrowsePath{{
		StartingNode: ua.ObjectsFolder,
		RelativePath: []browse.RelativePathElement{{ReferenceTypeID: ua.Organizes, TargetName: ua.NewQualifiedName(2, sample.RootFolder)}},
	}}})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, ua.StatusBadQueryTooComplex, decode[ServiceResponse](t, rec).ServiceResult)
}

func TestServer_History(t *testing.T) {
	ts := newTestServer(t, true, nil)
	ns := ts.rt.Services().Objects.Namespace()

	rec := ts.do(t, http.MethodPost, "/v1/history", history.ReadRequest{
		NodesToRead:      []ua.NodeID{objects.InstanceID(ns, sample.TemperatureType, "t2"), ua.ObjectsFolder},
		NumValuesPerNode: 5,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[history.ReadResponse](t, rec)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, ua.StatusGood, resp.Results[0].StatusCode)
	assert.NotEmpty(t, resp.Results[0].Values)
	assert.LessOrEqual(t, len(resp.Results[0].Values), 5)
	assert.Equal(t, ua.StatusBadHistoryOperationUnsupported, resp.Results[1].StatusCode)
}

func TestServer_MetricsAndRequestID(t *testing.T) {
	ts := newTestServer(t, true, nil)
	ns := ts.rt.Services().Objects.Namespace()
	rec := ts.do(t, http.MethodGet, nodePath(objects.InstanceID(ns, sample.RoomType, "1")), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = ts.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "uaspace_http_requests_total")
	assert.Contains(t, body, "uaspace_goroutines")
	assert.Contains(t, body, `path="GET /v1/nodes/{nodeId}"`, "routes are labelled by pattern")
	assert.NotContains(t, body, "Room:1")
}

func TestServer_GraphQLToggle(t *testing.T) {
	query := map[string]string{"query": "{ namespaces { uri } }"}

	ts := newTestServer(t, true, nil)
	rec := ts.do(t, http.MethodPost, "/graphql", query)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), ua.NamespaceURIStandard)

	off := newTestServer(t, true, func(c *config.Config) { c.Server.GraphQL = false })
	rec = off.do(t, http.MethodPost, "/graphql", query)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_PasswordAuth(t *testing.T) {
	ts := newTestServer(t, true, func(c *config.Config) { c.Auth.Mode = config.AuthPassword })
	creds := sample.DemoUsers()[1]

	rec := ts.do(t, http.MethodGet, "/v1/whoami", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))

	rec = ts.do(t, http.MethodGet, "/v1/whoami", nil, func(r *http.Request) {
		r.SetBasicAuth(creds.Username, creds.Password)
	})
	require.Equal(t, http.StatusOK, rec.Code)
	id := decode[auth.Identity](t, rec)
	assert.Equal(t, creds.Username, id.Username)
	assert.Equal(t, auth.RoleOperator, id.Role)

	rec = ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "health stays public")
	rec = ts.do(t, http.MethodPost, "/v1/token", nil, func(r *http.Request) {
		r.SetBasicAuth(creds.Username, creds.Password)
	})
	assert.Equal(t, http.StatusNotFound, rec.Code, "no token endpoint outside jwt mode")
}

func TestServer_JWTAuth(t *testing.T) {
	ts := newTestServer(t, true, func(c *config.Config) {
		c.Auth.Mode = config.AuthJWT
		c.Auth.JWT.Secret = "0123456789abcdef0123456789abcdef"
	})
	creds := sample.DemoUsers()[0]

	rec := ts.do(t, http.MethodPost, "/v1/token", nil, func(r *http.Request) {
		r.SetBasicAuth(creds.Username, creds.Password)
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tok := decode[TokenResponse](t, rec)
	require.NotEmpty(t, tok.Token)
	assert.Equal(t, 3600, tok.ExpiresIn)

	bearer := func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+tok.Token) }
	rec = ts.do(t, http.MethodGet, "/v1/whoami", nil, bearer)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, creds.Username, decode[auth.Identity](t, rec).Username)

	rec = ts.do(t, http.MethodPost, "/v1/token", nil, bearer)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "tokens are not renewable with a token")

	rec = ts.do(t, http.MethodGet, "/v1/whoami", nil, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer not-a-token")
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_RecoversFromPanics(t *testing.T) {
	ts := newTestServer(t, true, nil)
	ts.srv.mux.HandleFunc("GET /panic", func(http.ResponseWriter, *http.Request) { panic("boom") })

	rec := ts.do(t, http.MethodGet, "/panic", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
