package nodeids

import (
	"errors"
	"strings"
	"testing"

	"github.com/dd0wney/cluso-uaspace/pkg/ua"
)

func TestParseCSV(t *testing.T) {
	input := `# building model ids
BuildingType,1,ObjectType
BuildingType_Address,2,Variable
Floor_1,floor-one,Object
`
	table, err := ParseCSV(strings.NewReader(input), 3)
	if err != nil {
		t.Fatalf("ParseCSV failed: %v", err)
	}
	if table.Len() != 3 {
		t.Fatalf("Expected 3 entries, got %d", table.Len())
	}

	tests := []struct {
		name  string
		want  ua.NodeID
		class ua.NodeClass
	}{
		{"BuildingType", ua.NewNumericNodeID(3, 1), ua.NodeClassObjectType},
		{"BuildingType_Address", ua.NewNumericNodeID(3, 2), ua.NodeClassVariable},
		{"Floor_1", ua.NewStringNodeID(3, "floor-one"), ua.NodeClassObject},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, ok := table.Entry(tt.name)
			if !ok {
				t.Fatalf("Entry %s not found", tt.name)
			}
			if e.ID != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, e.ID)
			}
			if e.Class != tt.class {
				t.Errorf("Expected class %s, got %s", tt.class, e.Class)
			}
		})
	}
}

func TestParseCSVErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"duplicate", "A,1,Object\nA,2,Object\n", ErrDuplicateName},
		{"short row", "A\n", ErrMalformedRow},
		{"bad class", "A,1,Thing\n", ErrMalformedRow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCSV(strings.NewReader(tt.input), 2)
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestStandard(t *testing.T) {
	std := Standard()
	checks := map[string]ua.NodeID{
		"HasComponent":      ua.HasComponent,
		"HasProperty":       ua.HasProperty,
		"HasSubtype":        ua.HasSubtype,
		"HasTypeDefinition": ua.HasTypeDefinition,
		"Organizes":         ua.Organizes,
		"BaseObjectType":    ua.BaseObjectType,
		"PropertyType":      ua.PropertyType,
		"ObjectsFolder":     ua.ObjectsFolder,
	}
	for name, want := range checks {
		got, ok := std.Lookup(name)
		if !ok || got != want {
			t.Errorf("Standard %s = %s (found %v), want %s", name, got, ok, want)
		}
	}

	// Each call returns an independent table.
	if err := std.Add("Extra", ua.NewNumericNodeID(0, 9999), ua.NodeClassObject); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if _, ok := Standard().Lookup("Extra"); ok {
		t.Error("Standard tables should not share state")
	}
}

func TestPrefixed(t *testing.T) {
	table := NewTable()
	table.Add("ServerStatusType", ua.NewNumericNodeID(2, 1), ua.NodeClassVariableType)
	table.Add("ServerStatusType_Value", ua.NewNumericNodeID(2, 2), ua.NodeClassVariable)
	table.Add("Value", ua.NewNumericNodeID(2, 3), ua.NodeClassVariable)
	table.Add("State", ua.NewNumericNodeID(2, 4), ua.NodeClassVariable)

	r := Prefixed("ServerStatusType_", table)

	if id, _ := r.Lookup("Value"); id != ua.NewNumericNodeID(2, 2) {
		t.Errorf("Expected prefixed match, got %s", id)
	}
	if id, _ := r.Lookup("State"); id != ua.NewNumericNodeID(2, 4) {
		t.Errorf("Expected fallback to plain name, got %s", id)
	}
	if _, ok := r.Lookup("Missing"); ok {
		t.Error("Expected Missing to be unresolved")
	}

	// Decorating a decorated resolver qualifies names with both prefixes.
	table.Add("Outer_Inner_Leaf", ua.NewNumericNodeID(2, 5), ua.NodeClassVariable)
	nested := Prefixed("Inner_", Prefixed("Outer_", table))
	if id, _ := nested.Lookup("Leaf"); id != ua.NewNumericNodeID(2, 5) {
		t.Errorf("Expected nested prefix match, got %s", id)
	}
}

func TestChain(t *testing.T) {
	custom := NewTable()
	custom.Add("RoomType", ua.NewNumericNodeID(2, 100), ua.NodeClassObjectType)
	custom.Add("BaseObjectType", ua.NewNumericNodeID(2, 101), ua.NodeClassObjectType)

	r := Chain(custom, Standard())
	if id, _ := r.Lookup("RoomType"); id != ua.NewNumericNodeID(2, 100) {
		t.Errorf("Expected custom id, got %s", id)
	}
	if id, _ := r.Lookup("HasComponent"); id != ua.HasComponent {
		t.Errorf("Expected standard fallback, got %s", id)
	}
	if id, _ := r.Lookup("BaseObjectType"); id != ua.NewNumericNodeID(2, 101) {
		t.Errorf("Expected first resolver to win, got %s", id)
	}
}
