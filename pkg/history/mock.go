package history

import (
	"context"
	"hash/fnv"
	"time"

	"github.com/dd0wney/cluso-uaspace/pkg/ua"
)

var mockSamples = []float64{1.12, 1.23, 1.55, 1.22, 1.65, 2.75, 2.03, 2.23, 2.11, 1.77, 1.23, 1.66}

// Mock fabricates a fixed sample curve spread evenly over the requested
// range. The curve is scaled by Factor, or by a factor in [1, 10] derived
// from the node or field when Factor is zero.
type Mock struct {
	Factor float64
}

// ReadRaw implements Provider.
func (m Mock) ReadRaw(_ context.Context, id ua.NodeID, start, end time.Time) ([]DataValue, error) {
	return m.spread(id.String(), start, end), nil
}

// FieldValues implements FieldHistory.
func (m Mock) FieldValues(_ context.Context, descriptor, objectID, field string, start, end time.Time) ([]DataValue, error) {
	return m.spread(descriptor+"/"+objectID+"/"+field, start, end), nil
}

// Name implements Provider.
func (Mock) Name() string { return "mock" }

func (m Mock) spread(key string, start, end time.Time) []DataValue {
	factor := m.Factor
	if factor == 0 {
		h := fnv.New32a()
		h.Write([]byte(key))
		factor = float64(h.Sum32()%10 + 1)
	}

	step := end.Sub(start) / time.Duration(len(mockSamples)-1)
	out := make([]DataValue, len(mockSamples))
	for i, v := range mockSamples {
		out[i] = Good(factor*v, start.Add(step*time.Duration(i)))
	}
	return out
}
