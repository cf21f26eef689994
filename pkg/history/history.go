// Package history answers raw history reads for historizing variables.
// Values come from a pluggable Provider: a mock that fabricates samples,
// an adapter that maps object member ids onto per-field stores, or a
// PostgreSQL table.
package history

import (
	"context"
	"errors"
	"time"

	"github.com/dd0wney/cluso-uaspace/pkg/ua"
)

var (
	// ErrUnsupported means the provider holds no history for the node kind.
	ErrUnsupported = errors.New("history not supported for node")
	// ErrUnknownNode means the provider cannot map the node id.
	ErrUnknownNode = errors.New("unknown history node")
)

// DataValue is one archived sample.
type DataValue struct {
	Value           any           `json:"value"`
	StatusCode      ua.StatusCode `json:"statusCode"`
	SourceTimestamp time.Time     `json:"sourceTimestamp"`
	ServerTimestamp time.Time     `json:"serverTimestamp"`
}

// Good returns a Good sample stamped with ts on both clocks.
func Good(value any, ts time.Time) DataValue {
	return DataValue{Value: value, StatusCode: ua.StatusGood, SourceTimestamp: ts, ServerTimestamp: ts}
}

// Provider reads archived values of one node within [start, end].
type Provider interface {
	ReadRaw(ctx context.Context, id ua.NodeID, start, end time.Time) ([]DataValue, error)
	// Name identifies the provider in logs and metrics.
	Name() string
}

// ReadRequest is a raw history read.
type ReadRequest struct {
	NodesToRead      []ua.NodeID `json:"nodesToRead"`
	StartTime        time.Time   `json:"startTime"`
	EndTime          time.Time   `json:"endTime"`
	NumValuesPerNode uint32      `json:"numValuesPerNode"`
}

// ReadResult holds the samples of one node.
type ReadResult struct {
	StatusCode ua.StatusCode `json:"statusCode"`
	Values     []DataValue   `json:"values"`
}

// ReadResponse answers a ReadRequest, one result per requested node.
type ReadResponse struct {
	ServiceResult ua.StatusCode `json:"serviceResult"`
	Results       []ReadResult  `json:"results"`
}
