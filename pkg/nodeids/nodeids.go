// Package nodeids maps symbolic node names, as used in model files, to
// NodeIDs. Tables are loaded from "Name,Identifier,NodeClass" CSV files and
// can be layered with Chain and decorated with Prefixed.
package nodeids

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/dd0wney/cluso-uaspace/pkg/ua"
)

var (
	// ErrDuplicateName is returned when a table already holds a name.
	ErrDuplicateName = errors.New("duplicate symbolic name")
	// ErrMalformedRow is returned for CSV rows that cannot be interpreted.
	ErrMalformedRow = errors.New("malformed node id row")
)

// Resolver resolves a symbolic name to a NodeID.
type Resolver interface {
	Lookup(name string) (ua.NodeID, bool)
}

// Entry is one row of a table.
type Entry struct {
	Name  string
	ID    ua.NodeID
	Class ua.NodeClass
}

// Table is an in-memory name -> NodeID registry. It is populated at startup
// and only read afterwards.
type Table struct {
	entries map[string]Entry
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{entries: make(map[string]Entry)}
}

// Add registers a name. Re-adding a name is an error.
func (t *Table) Add(name string, id ua.NodeID, class ua.NodeClass) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrMalformedRow)
	}
	if existing, ok := t.entries[name]; ok {
		return fmt.Errorf("%w: %s already maps to %s", ErrDuplicateName, name, existing.ID)
	}
	t.entries[name] = Entry{Name: name, ID: id, Class: class}
	return nil
}

// Lookup implements Resolver.
func (t *Table) Lookup(name string) (ua.NodeID, bool) {
	e, ok := t.entries[name]
	return e.ID, ok
}

// Entry returns the full row for a name.
func (t *Table) Entry(name string) (Entry, bool) {
	e, ok := t.entries[name]
	return e, ok
}

// Len returns the number of names.
func (t *Table) Len() int {
	return len(t.entries)
}

// Entries returns all rows sorted by name.
func (t *Table) Entries() []Entry {
	out := make([]Entry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ParseCSV reads a "Name,Identifier,NodeClass" table. Numeric identifiers
// become numeric NodeIDs, anything else a string NodeID; every id is placed
// in namespace ns. Blank lines and lines starting with '#' are skipped.
func ParseCSV(r io.Reader, ns uint16) (*Table, error) {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	table := NewTable()
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("nodeids.ParseCSV: read failed: %w", err)
		}
		if len(record) < 2 {
			return nil, fmt.Errorf("%w: line %d has %d fields", ErrMalformedRow, line, len(record))
		}

		name := strings.TrimSpace(record[0])
		raw := strings.TrimSpace(record[1])
		var id ua.NodeID
		if v, err := strconv.ParseUint(raw, 10, 32); err == nil {
			id = ua.NewNumericNodeID(ns, uint32(v))
		} else {
			id = ua.NewStringNodeID(ns, raw)
		}

		class := ua.NodeClassUnspecified
		if len(record) > 2 {
			c, ok := ua.ParseNodeClass(strings.TrimSpace(record[2]))
			if !ok {
				return nil, fmt.Errorf("%w: line %d unknown node class %q", ErrMalformedRow, line, record[2])
			}
			class = c
		}

		if err := table.Add(name, id, class); err != nil {
			return nil, fmt.Errorf("nodeids.ParseCSV: line %d: %w", line, err)
		}
	}
	return table, nil
}

//go:embed standard.csv
var standardCSV []byte

// Standard returns a fresh table of the namespace 0 names the server knows.
func Standard() *Table {
	t, err := ParseCSV(bytes.NewReader(standardCSV), ua.NamespaceIndexStandard)
	if err != nil {
		panic(fmt.Sprintf("nodeids: embedded standard table is invalid: %v", err))
	}
	return t
}

type prefixed struct {
	prefix string
	next   Resolver
}

// Prefixed returns a Resolver that first tries prefix+name and falls back
// to name. Nested element names in model files are qualified this way, e.g.
// "Temperature" inside "RoomType" resolves as "RoomType_Temperature".
func Prefixed(prefix string, r Resolver) Resolver {
	return prefixed{prefix: prefix, next: r}
}

func (p prefixed) Lookup(name string) (ua.NodeID, bool) {
	if id, ok := p.next.Lookup(p.prefix + name); ok {
		return id, true
	}
	return p.next.Lookup(name)
}

type chain []Resolver

// Chain returns a Resolver that consults each resolver in order.
func Chain(resolvers ...Resolver) Resolver {
	return chain(resolvers)
}

func (c chain) Lookup(name string) (ua.NodeID, bool) {
	for _, r := range c {
		if id, ok := r.Lookup(name); ok {
			return id, true
		}
	}
	return ua.NodeID{}, false
}
