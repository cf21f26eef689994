package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dd0wney/cluso-uaspace/pkg/addressspace"
	"github.com/dd0wney/cluso-uaspace/pkg/browse"
	"github.com/dd0wney/cluso-uaspace/pkg/ua"
)

// client talks to the gateway.
type client struct {
	base     string
	http     *http.Client
	username string
	password string
	token    string
}

func newClient(base string) *client {
	return &client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *client) do(ctx context.Context, method, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.token != "":
		req.Header.Set("Authorization", "Bearer "+c.token)
	case c.username != "":
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		var e struct {
			Message string `json:"message"`
		}
		json.NewDecoder(resp.Body).Decode(&e)
		if e.Message == "" {
			e.Message = http.StatusText(resp.StatusCode)
		}
		return fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode, e.Message)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// login exchanges the basic credentials for a token.
func (c *client) login(ctx context.Context) error {
	var tok struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/token", nil, &tok); err != nil {
		return err
	}
	c.token = tok.Token
	return nil
}

// children returns the forward hierarchical references of id.
func (c *client) children(ctx context.Context, id ua.NodeID) ([]ua.ReferenceDescription, error) {
	req := browse.Request{NodesToBrowse: []browse.Description{{
		NodeID:          id,
		Direction:       ua.BrowseDirectionForward,
		ReferenceTypeID: ua.HierarchicalReferences,
		IncludeSubtypes: true,
		ResultMask:      ua.ResultMaskAll,
	}}}
	var resp browse.Response
	if err := c.do(ctx, http.MethodPost, "/v1/browse", req, &resp); err != nil {
		return nil, err
	}
	if resp.ServiceResult.IsBad() {
		return nil, resp.ServiceResult
	}
	if len(resp.Results) != 1 {
		return nil, fmt.Errorf("browse returned %d results", len(resp.Results))
	}
	if st := resp.Results[0].StatusCode; st.IsBad() {
		return nil, st
	}
	return resp.Results[0].References, nil
}

func (c *client) node(ctx context.Context, id ua.NodeID) (*ua.Node, error) {
	var n ua.Node
	if err := c.do(ctx, http.MethodGet, "/v1/nodes/"+url.PathEscape(id.String()), nil, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (c *client) namespaces(ctx context.Context) ([]addressspace.NamespaceInfo, error) {
	var out []addressspace.NamespaceInfo
	err := c.do(ctx, http.MethodGet, "/v1/namespaces", nil, &out)
	return out, err
}
