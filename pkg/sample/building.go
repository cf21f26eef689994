// Package sample provides a small building model: floors, rooms and the
// temperature and humidity sensors in each room. It is exposed in its own
// namespace when the server starts with the sample enabled.
package sample

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/dd0wney/cluso-uaspace/pkg/addressspace"
	"github.com/dd0wney/cluso-uaspace/pkg/auth"
	"github.com/dd0wney/cluso-uaspace/pkg/descriptor"
	"github.com/dd0wney/cluso-uaspace/pkg/objects"
	"github.com/dd0wney/cluso-uaspace/pkg/ua"
)

// RootFolder is the browse name of the folder holding the building.
const RootFolder = "my building"

// reading is a float64 that can be read while Simulate updates it.
type reading struct{ bits atomic.Uint64 }

func (r *reading) Load() float64   { return math.Float64frombits(r.bits.Load()) }
func (r *reading) Store(v float64) { r.bits.Store(math.Float64bits(v)) }

// TemperatureSensor measures degrees Celsius.
type TemperatureSensor struct {
	ID    string
	value reading
}

// Value returns the current temperature.
func (s *TemperatureSensor) Value() float64 { return s.value.Load() }

// Set changes the current temperature.
func (s *TemperatureSensor) Set(v float64) { s.value.Store(v) }

// HumiditySensor measures relative humidity between 0 and 1.
type HumiditySensor struct {
	ID    string
	value reading
}

func (s *HumiditySensor) Value() float64 { return s.value.Load() }
func (s *HumiditySensor) Set(v float64)  { s.value.Store(v) }

type Room struct {
	Number      int
	Name        string
	Description string
	Area        float64
	WindowCount int
	Temperature *TemperatureSensor
	Humidity    *HumiditySensor
}

type Floor struct {
	Level int
	Name  string
	Rooms []*Room
}

type Building struct {
	ID     string
	Name   string
	Floors []*Floor
}

// Descriptor names.
const (
	BuildingType    = "Building"
	FloorType       = "Floor"
	RoomType        = "Room"
	TemperatureType = "TemperatureSensor"
	HumidityType    = "HumiditySensor"
)

// Descriptors returns the descriptors of the building model.
func Descriptors() []descriptor.Descriptor {
	return []descriptor.Descriptor{
		{
			Name:        BuildingType,
			NodeClass:   ua.NodeClassObject,
			Description: "a building made of floors",
			Fields: []descriptor.Field{
				descriptor.Identifier("id", func(o any) any { return o.(*Building).ID }),
				descriptor.DisplayName("name", func(o any) any { return o.(*Building).Name }),
				descriptor.Reference("floors", ua.HasComponent, func(o any) any { return o.(*Building).Floors }).
					Targeting(FloorType).Named("Floors"),
			},
		},
		{
			Name:      FloorType,
			NodeClass: ua.NodeClassObject,
			Fields: []descriptor.Field{
				descriptor.Identifier("level", func(o any) any { return o.(*Floor).Level }),
				descriptor.DisplayName("name", func(o any) any { return o.(*Floor).Name }),
				descriptor.Reference("rooms", ua.HasComponent, func(o any) any { return o.(*Floor).Rooms }).
					Targeting(RoomType).Named("Rooms"),
			},
		},
		{
			Name:        RoomType,
			NodeClass:   ua.NodeClassObject,
			Description: "a room with a temperature and a humidity sensor",
			Fields: []descriptor.Field{
				descriptor.Identifier("number", func(o any) any { return o.(*Room).Number }),
				descriptor.DisplayName("name", func(o any) any { return o.(*Room).Name }),
				descriptor.Description("description", func(o any) any { return o.(*Room).Description }),
				descriptor.Property("area", ua.DataTypeDouble, func(o any) any { return o.(*Room).Area }).Named("Area"),
				descriptor.Property("windowCount", ua.DataTypeInt32, func(o any) any { return int32(o.(*Room).WindowCount) }).
					Named("WindowCount"),
				descriptor.Reference("temperature", ua.HasComponent, func(o any) any { return o.(*Room).Temperature }).
					Targeting(TemperatureType).Named("Temperature"),
				descriptor.Reference("humidity", ua.HasComponent, func(o any) any { return o.(*Room).Humidity }).
					Targeting(HumidityType).Named("Humidity"),
			},
		},
		{
			Name:        TemperatureType,
			NodeClass:   ua.NodeClassVariable,
			Description: "degree Celsius",
			Fields: []descriptor.Field{
				descriptor.Identifier("id", func(o any) any { return o.(*TemperatureSensor).ID }),
				descriptor.DisplayName("name", func(any) any { return "Temperature Value" }),
				descriptor.Value("value", ua.DataTypeDouble, func(o any) any { return o.(*TemperatureSensor).Value() }),
				descriptor.Property("unit", ua.DataTypeString, func(any) any { return "degree Celsius" }).Named("Unit"),
			},
		},
		{
			Name:        HumidityType,
			NodeClass:   ua.NodeClassVariable,
			Description: "value between 0 and 1",
			Fields: []descriptor.Field{
				descriptor.Identifier("id", func(o any) any { return o.(*HumiditySensor).ID }),
				descriptor.DisplayName("name", func(any) any { return "Relative Humidity" }),
				descriptor.Value("value", ua.DataTypeDouble, func(o any) any { return o.(*HumiditySensor).Value() }),
				descriptor.Property("unit", ua.DataTypeString, func(any) any { return "value between 0 and 1" }).Named("Unit"),
			},
		},
	}
}

func newRoom(number int, name, description string, area float64, windows int, temp, humidity float64) *Room {
	r := &Room{
		Number:      number,
		Name:        name,
		Description: description,
		Area:        area,
		WindowCount: windows,
		Temperature: &TemperatureSensor{ID: fmt.Sprintf("t%d", number)},
		Humidity:    &HumiditySensor{ID: fmt.Sprintf("h%d", number)},
	}
	r.Temperature.Set(temp)
	r.Humidity.Set(humidity)
	return r
}

// NewBuilding returns the sample building: two floors with two rooms each.
func NewBuilding() *Building {
	return &Building{
		ID:   "hq",
		Name: "Headquarters",
		Floors: []*Floor{
			{Level: 0, Name: "Ground Floor", Rooms: []*Room{
				newRoom(1, "Lobby", "entrance hall", 80, 6, 20.5, 0.45),
				newRoom(2, "Kitchen", "kitchen and coffee corner", 25, 2, 22.0, 0.55),
			}},
			{Level: 1, Name: "First Floor", Rooms: []*Room{
				newRoom(101, "Office", "open plan office", 120, 10, 21.5, 0.40),
				newRoom(102, "Meeting Room", "", 30, 3, 21.0, 0.42),
			}},
		},
	}
}

// Rooms returns every room of the building.
func (b *Building) Rooms() []*Room {
	var out []*Room
	for _, f := range b.Floors {
		out = append(out, f.Rooms...)
	}
	return out
}

// Source returns an objects.Source holding the building and everything in
// it. Sensor values stay live: Set and Simulate are visible through the
// source.
func (b *Building) Source() *objects.MapSource {
	src := objects.NewMapSource()
	src.Put(BuildingType, b.ID, b)
	for _, f := range b.Floors {
		src.Put(FloorType, f.Level, f)
		for _, r := range f.Rooms {
			src.Put(RoomType, r.Number, r)
			src.Put(TemperatureType, r.Temperature.ID, r.Temperature)
			src.Put(HumidityType, r.Humidity.ID, r.Humidity)
		}
	}
	return src
}

// Backend builds the objects backend of the building in namespace ns.
// The root folder defaults to RootFolder.
func (b *Building) Backend(ns uint16, lookup addressspace.Lookup, opts ...objects.Option) (*objects.Backend, error) {
	opts = append([]objects.Option{objects.WithRootFolder(RootFolder)}, opts...)
	return objects.New(ns, lookup, b.Source(), Descriptors(), opts...)
}

// Factory wraps Backend as a namespace factory.
func (b *Building) Factory(opts ...objects.Option) addressspace.Factory {
	return func(ns uint16, lookup addressspace.Lookup) (addressspace.Backend, error) {
		return b.Backend(ns, lookup, opts...)
	}
}

// Simulate moves every sensor value by a small random step each interval
// until ctx is done. Temperatures stay within 15..30 and humidity within
// 0..1. A non-nil onStep runs after each step.
func (b *Building) Simulate(ctx context.Context, interval time.Duration, rng *rand.Rand, onStep func(time.Time)) {
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			b.Step(rng)
			if onStep != nil {
				onStep(now)
			}
		}
	}
}

// Step applies one simulation step.
func (b *Building) Step(rng *rand.Rand) {
	for _, r := range b.Rooms() {
		r.Temperature.Set(clamp(r.Temperature.Value()+(rng.Float64()-0.5)*0.4, 15, 30))
		r.Humidity.Set(clamp(r.Humidity.Value()+(rng.Float64()-0.5)*0.02, 0, 1))
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Credentials of the demo accounts added by AddUsers.
var demoUsers = []auth.Credentials{
	{Username: "stanley", Password: "smith-stanley"},
	{Username: "francine", Password: "smith-francine"},
}

// DemoUsers returns the demo account credentials.
func DemoUsers() []auth.Credentials {
	return append([]auth.Credentials(nil), demoUsers...)
}

// AddUsers adds the demo accounts to store as operators.
func AddUsers(store *auth.UserStore) error {
	for _, c := range demoUsers {
		if _, err := store.AddUser(c.Username, c.Password, auth.RoleOperator); err != nil {
			return err
		}
	}
	return nil
}
