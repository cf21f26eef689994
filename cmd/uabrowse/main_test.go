package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-uaspace/pkg/api"
	"github.com/dd0wney/cluso-uaspace/pkg/bootstrap"
	"github.com/dd0wney/cluso-uaspace/pkg/config"
	"github.com/dd0wney/cluso-uaspace/pkg/logging"
	"github.com/dd0wney/cluso-uaspace/pkg/sample"
	"github.com/dd0wney/cluso-uaspace/pkg/ua"
)

func gateway(t *testing.T) *httptest.Server {
	t.Helper()
	rt, err := bootstrap.New(config.Default(), bootstrap.WithLogger(logging.NewNopLogger()))
	require.NoError(t, err)
	t.Cleanup(func() { rt.Close() })
	require.NoError(t, rt.Start(context.Background()))

	srv, err := api.NewServer(rt)
	require.NoError(t, err)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return ts
}

func TestClientChildren(t *testing.T) {
	c := newClient(gateway(t).URL)
	refs, err := c.children(context.Background(), ua.ObjectsFolder)
	require.NoError(t, err)

	var names []string
	for _, r := range refs {
		names = append(names, r.BrowseName.Name)
		assert.True(t, r.IsForward)
	}
	assert.Contains(t, names, sample.RootFolder)
}

func TestClientNodeAndNamespaces(t *testing.T) {
	c := newClient(gateway(t).URL)
	ctx := context.Background()

	n, err := c.node(ctx, ua.ObjectsFolder)
	require.NoError(t, err)
	assert.Equal(t, ua.ObjectsFolder, n.ID)
	assert.Equal(t, ua.NodeClassObject, n.Class)

	_, err = c.node(ctx, ua.NewStringNodeID(0, "missing"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")

	ns, err := c.namespaces(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, ns)
	assert.Equal(t, ua.NamespaceURIStandard, ns[0].URI)
}

func TestClientReportsNotReady(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":"Service Unavailable","message":"address space not ready","code":503}`))
	}))
	defer ts.Close()

	_, err := newClient(ts.URL).children(context.Background(), ua.RootFolder)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address space not ready")
}

func TestModelNavigation(t *testing.T) {
	m := initialModel(newClient(gateway(t).URL), ua.ObjectsFolder)

	msg := m.browseCmd(m.current())()
	browsed, ok := msg.(browsedMsg)
	require.True(t, ok, "got %T", msg)

	next, _ := m.Update(browsed)
	m = next.(model)
	require.NotEmpty(t, m.refs)
	assert.Equal(t, "Objects", m.path[0].name)

	idx := -1
	for i, r := range m.refs {
		if r.BrowseName.Name == sample.RootFolder {
			idx = i
		}
	}
	require.GreaterOrEqual(t, idx, 0)
	m.refTable.SetCursor(idx)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(model)
	require.NotNil(t, cmd)
	require.Len(t, m.path, 2)
	assert.Equal(t, m.refs[idx].NodeID.NodeID, m.current())

	next, cmd = m.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	m = next.(model)
	require.NotNil(t, cmd)
	assert.Len(t, m.path, 1)

	// the root of the trail stays put
	next, cmd = m.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	assert.Nil(t, cmd)
	assert.Len(t, next.(model).path, 1)
}

func TestModelGotoRejectsBadID(t *testing.T) {
	m := initialModel(newClient("http://127.0.0.1:0"), ua.RootFolder)
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("g")})
	m = next.(model)
	require.True(t, m.gotoInput.Focused())

	m.gotoInput.SetValue("x=1")
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(model)
	assert.False(t, m.gotoInput.Focused())
	assert.Error(t, m.err)
	assert.Len(t, m.path, 1)
}
