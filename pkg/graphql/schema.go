// Package graphql exposes a read-only GraphQL view of the address space:
// single nodes, browse results, namespaces and raw history.
package graphql

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/graphql-go/graphql"

	"github.com/dd0wney/cluso-uaspace/pkg/bootstrap"
	"github.com/dd0wney/cluso-uaspace/pkg/browse"
	"github.com/dd0wney/cluso-uaspace/pkg/history"
	"github.com/dd0wney/cluso-uaspace/pkg/ua"
)

// ErrNotReady is returned by resolvers while the address space is not
// published.
var ErrNotReady = errors.New("address space not ready")

// ServicesFunc returns the published services, or nil before start.
type ServicesFunc func() *bootstrap.Services

type resolver struct {
	services ServicesFunc
}

func (r *resolver) get() (*bootstrap.Services, error) {
	svc := r.services()
	if svc == nil {
		return nil, ErrNotReady
	}
	return svc, nil
}

// reference is the source of a Reference object. Its target node is only
// looked up when selected.
type reference = ua.ReferenceDescription

// NewSchema builds the schema over services.
func NewSchema(services ServicesFunc) (graphql.Schema, error) {
	r := &resolver{services: services}

	nodeType := graphql.NewObject(graphql.ObjectConfig{
		Name:   "Node",
		Fields: graphql.Fields{},
	})
	referenceType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Reference",
		Fields: graphql.Fields{
			"referenceType": stringField(func(ref *reference) string { return ref.ReferenceTypeID.String() }),
			"isForward": &graphql.Field{
				Type: graphql.Boolean,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return p.Source.(*reference).IsForward, nil
				},
			},
			"nodeId":         stringField(func(ref *reference) string { return ref.NodeID.String() }),
			"browseName":     stringField(func(ref *reference) string { return ref.BrowseName.Name }),
			"displayName":    stringField(func(ref *reference) string { return ref.DisplayName.Text }),
			"nodeClass":      stringField(func(ref *reference) string { return ref.NodeClass.String() }),
			"typeDefinition": stringField(func(ref *reference) string { return ref.TypeDefinition.String() }),
			"target": &graphql.Field{
				Type: nodeType,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					svc, err := r.get()
					if err != nil {
						return nil, err
					}
					n, ok := svc.Space.NodeExpanded(p.Source.(*reference).NodeID)
					if !ok {
						return nil, nil
					}
					return n, nil
				},
			},
		},
	})

	nodeType.AddFieldConfig("nodeId", nodeString(func(n *ua.Node) string { return n.ID.String() }))
	nodeType.AddFieldConfig("nodeClass", nodeString(func(n *ua.Node) string { return n.Class.String() }))
	nodeType.AddFieldConfig("browseName", nodeString(func(n *ua.Node) string { return n.BrowseName.String() }))
	nodeType.AddFieldConfig("displayName", nodeString(func(n *ua.Node) string { return n.DisplayName.Text }))
	nodeType.AddFieldConfig("description", nodeString(func(n *ua.Node) string { return n.Description.Text }))
	nodeType.AddFieldConfig("dataType", nodeString(func(n *ua.Node) string {
		if n.Variable == nil {
			return ""
		}
		return n.Variable.DataType.String()
	}))
	nodeType.AddFieldConfig("value", &graphql.Field{
		Type:        graphql.String,
		Description: "current value as JSON, null for non-variables",
		Resolve: func(p graphql.ResolveParams) (any, error) {
			n := p.Source.(*ua.Node)
			if n.Variable == nil {
				return nil, nil
			}
			return jsonValue(n.Variable.Value)
		},
	})
	nodeType.AddFieldConfig("references", &graphql.Field{
		Type: graphql.NewList(referenceType),
		Args: browseArgs(false),
		Resolve: func(p graphql.ResolveParams) (any, error) {
			res, err := r.browse(p, p.Source.(*ua.Node).ID)
			if err != nil {
				return nil, err
			}
			return res.refs, nil
		},
	})

	browseResultType := graphql.NewObject(graphql.ObjectConfig{
		Name: "BrowseResult",
		Fields: graphql.Fields{
			"statusCode": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return p.Source.(*browseResult).status.String(), nil
				},
			},
			"references": &graphql.Field{
				Type: graphql.NewList(referenceType),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return p.Source.(*browseResult).refs, nil
				},
			},
		},
	})

	namespaceType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Namespace",
		Fields: graphql.Fields{
			"index": &graphql.Field{Type: graphql.Int},
			"uri":   &graphql.Field{Type: graphql.String},
			"nodes": &graphql.Field{Type: graphql.Int, Description: "owned nodes, -1 when unknown"},
		},
	})

	dataValueType := graphql.NewObject(graphql.ObjectConfig{
		Name: "DataValue",
		Fields: graphql.Fields{
			"value": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return jsonValue(p.Source.(history.DataValue).Value)
				},
			},
			"statusCode": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return p.Source.(history.DataValue).StatusCode.String(), nil
				},
			},
			"sourceTimestamp": &graphql.Field{
				Type: graphql.DateTime,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return p.Source.(history.DataValue).SourceTimestamp, nil
				},
			},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"node": &graphql.Field{
				Type: nodeType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					svc, err := r.get()
					if err != nil {
						return nil, err
					}
					id, err := nodeIDArg(p, "id")
					if err != nil {
						return nil, err
					}
					n, ok := svc.Space.Node(id)
					if !ok {
						return nil, nil
					}
					return n, nil
				},
			},
			"browse": &graphql.Field{
				Type: browseResultType,
				Args: browseArgs(true),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					id, err := nodeIDArg(p, "nodeId")
					if err != nil {
						return nil, err
					}
					return r.browse(p, id)
				},
			},
			"namespaces": &graphql.Field{
				Type: graphql.NewList(namespaceType),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					svc, err := r.get()
					if err != nil {
						return nil, err
					}
					out := make([]map[string]any, 0, len(svc.Space.Namespaces()))
					for _, ns := range svc.Space.Namespaces() {
						out = append(out, map[string]any{"index": int(ns.Index), "uri": ns.URI, "nodes": ns.Nodes})
					}
					return out, nil
				},
			},
			"history": &graphql.Field{
				Type: graphql.NewList(dataValueType),
				Args: graphql.FieldConfigArgument{
					"nodeId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"start":  &graphql.ArgumentConfig{Type: graphql.DateTime},
					"end":    &graphql.ArgumentConfig{Type: graphql.DateTime},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int},
				},
				Resolve: r.history,
			},
		},
	})

	schema, err := graphql.NewSchema(graphql.SchemaConfig{Query: queryType})
	if err != nil {
		return graphql.Schema{}, fmt.Errorf("failed to create schema: %w", err)
	}
	return schema, nil
}

type browseResult struct {
	status ua.StatusCode
	refs   []*reference
}

func browseArgs(withNode bool) graphql.FieldConfigArgument {
	args := graphql.FieldConfigArgument{
		"direction":       &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: "forward"},
		"referenceType":   &graphql.ArgumentConfig{Type: graphql.String},
		"includeSubtypes": &graphql.ArgumentConfig{Type: graphql.Boolean, DefaultValue: true},
		"nodeClassMask":   &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
		"maxReferences":   &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
	}
	if withNode {
		args["nodeId"] = &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)}
	}
	return args
}

func (r *resolver) browse(p graphql.ResolveParams, id ua.NodeID) (*browseResult, error) {
	svc, err := r.get()
	if err != nil {
		return nil, err
	}
	dir, ok := ua.ParseBrowseDirection(stringArg(p, "direction"))
	if !ok {
		return nil, fmt.Errorf("invalid direction %q", stringArg(p, "direction"))
	}
	d := browse.Description{
		NodeID:          id,
		Direction:       dir,
		IncludeSubtypes: boolArg(p, "includeSubtypes"),
		NodeClassMask:   ua.NodeClassMask(intArg(p, "nodeClassMask")),
		ResultMask:      ua.ResultMaskAll,
	}
	if s := stringArg(p, "referenceType"); s != "" {
		if d.ReferenceTypeID, err = ua.ParseNodeID(s); err != nil {
			return nil, err
		}
	}
	resp := svc.Browse.Browse(p.Context, &browse.Request{
		NodesToBrowse:                 []browse.Description{d},
		RequestedMaxReferencesPerNode: uint32(max(intArg(p, "maxReferences"), 0)),
	})
	if resp.ServiceResult.IsBad() {
		return &browseResult{status: resp.ServiceResult}, nil
	}
	res := resp.Results[0]
	out := &browseResult{status: res.StatusCode, refs: make([]*reference, len(res.References))}
	for i := range res.References {
		out.refs[i] = &res.References[i]
	}
	return out, nil
}

func (r *resolver) history(p graphql.ResolveParams) (any, error) {
	svc, err := r.get()
	if err != nil {
		return nil, err
	}
	id, err := nodeIDArg(p, "nodeId")
	if err != nil {
		return nil, err
	}
	end, _ := p.Args["end"].(time.Time)
	if end.IsZero() {
		end = time.Now().UTC()
	}
	start, _ := p.Args["start"].(time.Time)
	if start.IsZero() {
		start = end.Add(-time.Hour)
	}
	resp := svc.History.Read(p.Context, &history.ReadRequest{
		NodesToRead:      []ua.NodeID{id},
		StartTime:        start,
		EndTime:          end,
		NumValuesPerNode: uint32(max(intArg(p, "limit"), 0)),
	})
	if resp.ServiceResult.IsBad() {
		return nil, resp.ServiceResult
	}
	if res := resp.Results[0]; res.StatusCode.IsBad() {
		return nil, res.StatusCode
	}
	return resp.Results[0].Values, nil
}

func stringField(get func(*reference) string) *graphql.Field {
	return &graphql.Field{
		Type: graphql.String,
		Resolve: func(p graphql.ResolveParams) (any, error) {
			return get(p.Source.(*reference)), nil
		},
	}
}

func nodeString(get func(*ua.Node) string) *graphql.Field {
	return &graphql.Field{
		Type: graphql.String,
		Resolve: func(p graphql.ResolveParams) (any, error) {
			return get(p.Source.(*ua.Node)), nil
		},
	}
}

func jsonValue(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func nodeIDArg(p graphql.ResolveParams, name string) (ua.NodeID, error) {
	return ua.ParseNodeID(stringArg(p, name))
}

func stringArg(p graphql.ResolveParams, name string) string {
	s, _ := p.Args[name].(string)
	return s
}

func boolArg(p graphql.ResolveParams, name string) bool {
	b, _ := p.Args[name].(bool)
	return b
}

func intArg(p graphql.ResolveParams, name string) int {
	n, _ := p.Args[name].(int)
	return n
}
