package objects

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/dd0wney/cluso-uaspace/pkg/addressspace"
	"github.com/dd0wney/cluso-uaspace/pkg/descriptor"
	"github.com/dd0wney/cluso-uaspace/pkg/logging"
	"github.com/dd0wney/cluso-uaspace/pkg/ua"
)

// InstanceID returns the node id of an object instance.
func InstanceID(ns uint16, name, objectID string) ua.NodeID {
	return ua.NewStringNodeID(ns, name+":"+objectID)
}

// MemberID returns the node id of an instance member.
func MemberID(ns uint16, name, objectID, browseName string) ua.NodeID {
	return ua.NewStringNodeID(ns, name+":"+objectID+":"+browseName)
}

// ParsedID is the decoded form of an instance or member id.
type ParsedID struct {
	Descriptor string
	ObjectID   string
	// Member is the member browse name; empty for instances.
	Member string
}

// ParseID decodes an id built by InstanceID or MemberID. Object ids never
// contain a colon, so the member is everything after the second one.
func ParseID(id ua.NodeID) (ParsedID, bool) {
	if id.Type() != ua.IDTypeString {
		return ParsedID{}, false
	}
	parts := strings.SplitN(id.StringID(), ":", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return ParsedID{}, false
	}
	p := ParsedID{Descriptor: parts[0], ObjectID: parts[1]}
	if len(parts) == 3 {
		p.Member = parts[2]
	}
	return p, true
}

type liveValue struct {
	descriptor string
	objectID   string
	get        descriptor.Getter
}

// Backend is the namespace partition holding descriptor types and object
// instances. The node graph is fixed when New returns; variable values
// are read from the Source on every Node call.
type Backend struct {
	ns       uint16
	mem      *addressspace.MemoryBackend
	source   Source
	mappings []*descriptor.NodeMapping
	byName   map[string]*descriptor.NodeMapping
	live     map[ua.NodeID]liveValue
	root     ua.NodeID
	locale   string
	logger   logging.Logger
}

var (
	_ addressspace.Backend    = (*Backend)(nil)
	_ addressspace.Enumerator = (*Backend)(nil)
)

// Factory returns an addressspace.Factory that builds a Backend once the
// namespace index is assigned.
func Factory(source Source, descriptors []descriptor.Descriptor, opts ...Option) addressspace.Factory {
	return func(ns uint16, lookup addressspace.Lookup) (addressspace.Backend, error) {
		return New(ns, lookup, source, descriptors, opts...)
	}
}

// New builds the types and instances for descriptors in namespace ns.
// Invalid descriptors are logged and skipped. Parent types resolve first
// against this namespace, then through lookup.
func New(ns uint16, lookup addressspace.Lookup, source Source, descriptors []descriptor.Descriptor, opts ...Option) (*Backend, error) {
	if source == nil {
		return nil, errors.New("objects: nil source")
	}
	o := newOptions(opts)
	b := &Backend{
		ns:     ns,
		mem:    addressspace.NewMemoryBackend(),
		source: source,
		byName: make(map[string]*descriptor.NodeMapping),
		live:   make(map[ua.NodeID]liveValue),
		root:   ua.NewStringNodeID(ns, o.rootFolder),
		locale: o.locale,
		logger: o.logger.With(logging.Component("objects"), logging.Namespace(ns)),
	}

	b.mappings = descriptor.IntrospectAll(descriptors, o.logger)
	for _, m := range b.mappings {
		b.byName[m.Name] = m
	}

	types := NewTypeBuilder(ns, chainLookup{b.mem, lookup}, opts...)
	for _, m := range b.mappings {
		if err := types.Build(m).Install(b.mem); err != nil {
			return nil, fmt.Errorf("objects: install %s: %w", TypeName(m.Name), err)
		}
	}

	if err := b.addRootFolder(o.rootFolder); err != nil {
		return nil, err
	}

	linked := make(map[string]bool)
	for _, m := range b.mappings {
		for _, rm := range m.References {
			if rm.IsObjectLink() {
				linked[rm.Target] = true
			}
		}
	}

	for _, m := range b.mappings {
		objs, err := source.Objects(m.Name)
		if err != nil {
			return nil, fmt.Errorf("objects: list %s: %w", m.Name, err)
		}
		for _, obj := range objs {
			b.addInstance(m, obj, !linked[m.Name])
		}
	}

	b.logger.Info("objects backend built",
		logging.Int("types", len(b.mappings)), logging.Int("nodes", b.mem.Len()))
	return b, nil
}

func (b *Backend) addRootFolder(name string) error {
	root := &ua.Node{
		ID:          b.root,
		Class:       ua.NodeClassObject,
		BrowseName:  ua.NewQualifiedName(b.ns, name),
		DisplayName: ua.NewLocalizedText(b.locale, name),
	}
	root.AddReference(ua.HasTypeDefinition, true, ua.Expand(ua.FolderType))
	if err := b.mem.AddNode(root); err != nil {
		return err
	}
	b.mem.AddReference(addressspace.NewReference(ua.ObjectsFolder, ua.Organizes, true, b.root))
	return nil
}

func (b *Backend) objectID(m *descriptor.NodeMapping, obj any) (string, bool) {
	v, ok := b.read(m.Identifier.Get, obj)
	if !ok || v == nil {
		return "", false
	}
	id := fmt.Sprint(v)
	if id == "" || strings.Contains(id, ":") {
		return "", false
	}
	return id, true
}

func (b *Backend) addInstance(m *descriptor.NodeMapping, obj any, organize bool) {
	objectID, ok := b.objectID(m, obj)
	if !ok {
		b.logger.Warn("object without usable identifier skipped", logging.SymbolicName(m.Name))
		return
	}
	id := InstanceID(b.ns, m.Name, objectID)

	display := objectID
	if v, ok := b.read(m.DisplayName.Get, obj); ok && v != nil {
		display = fmt.Sprint(v)
	}
	n := &ua.Node{
		ID:          id,
		Class:       m.NodeClass,
		BrowseName:  ua.NewQualifiedName(b.ns, display),
		DisplayName: ua.NewLocalizedText(b.locale, display),
	}
	if m.DescriptionField != nil {
		if v, ok := b.read(m.DescriptionField.Get, obj); ok && v != nil {
			n.Description = ua.NewLocalizedText(b.locale, fmt.Sprint(v))
		}
	}
	if m.NodeClass == ua.NodeClassVariable {
		value, _ := b.read(m.ValueField.Get, obj)
		n.Variable = variableAttributes(value, m.ValueField.DataType, m.ValueField.ValueRank)
		b.live[id] = liveValue{descriptor: m.Name, objectID: objectID, get: m.ValueField.Get}
	}
	n.AddReference(ua.HasTypeDefinition, true, ua.Expand(TypeID(b.ns, m.Name)))

	if err := b.mem.AddNode(n); err != nil {
		b.logger.Warn("duplicate object skipped", logging.NodeID(id), logging.Error(err))
		return
	}
	if organize {
		b.mem.AddReference(addressspace.NewReference(b.root, ua.Organizes, true, id))
	}

	for _, rm := range m.References {
		if rm.IsObjectLink() {
			b.link(id, rm, obj)
			continue
		}
		b.addMember(id, m.Name, objectID, rm, obj)
	}
}

func (b *Backend) addMember(parent ua.NodeID, name, objectID string, rm descriptor.ReferenceMapping, obj any) {
	id := MemberID(b.ns, name, objectID, rm.BrowseName)
	value, _ := b.read(rm.Field.Get, obj)
	n := &ua.Node{
		ID:          id,
		Class:       ua.NodeClassVariable,
		BrowseName:  ua.NewQualifiedName(b.ns, rm.BrowseName),
		DisplayName: ua.NewLocalizedText(b.locale, rm.DisplayName),
		Variable:    variableAttributes(value, rm.DataType, rm.ValueRank),
	}
	n.AddReference(ua.HasTypeDefinition, true, ua.Expand(rm.TypeDefinition))
	if err := b.mem.AddNode(n); err != nil {
		b.logger.Warn("duplicate member skipped", logging.NodeID(id), logging.Error(err))
		return
	}
	b.mem.AddReference(addressspace.NewReference(parent, rm.ReferenceType, true, id))
	b.live[id] = liveValue{descriptor: name, objectID: objectID, get: rm.Field.Get}
}

func (b *Backend) link(source ua.NodeID, rm descriptor.ReferenceMapping, obj any) {
	target, ok := b.byName[rm.Target]
	if !ok {
		return
	}
	v, ok := b.read(rm.Field.Get, obj)
	if !ok {
		return
	}
	for _, t := range flatten(v) {
		targetID, ok := b.objectID(target, t)
		if !ok {
			continue
		}
		b.mem.AddReference(addressspace.NewReference(source, rm.ReferenceType, true, InstanceID(b.ns, target.Name, targetID)))
	}
}

// flatten expands slices and arrays into their elements and drops nils.
func flatten(v any) []any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out = append(out, flatten(rv.Index(i).Interface())...)
		}
		return out
	case reflect.Pointer, reflect.Interface, reflect.Map:
		if rv.IsNil() {
			return nil
		}
	}
	return []any{v}
}

func variableAttributes(value any, dataType ua.NodeID, rank int32) *ua.VariableAttributes {
	access := ua.AccessLevelCurrentRead | ua.AccessLevelHistoryRead
	return &ua.VariableAttributes{
		Value:           value,
		DataType:        dataType,
		ValueRank:       rank,
		AccessLevel:     access,
		UserAccessLevel: access,
		Historizing:     true,
	}
}

// read calls a getter, turning a panic into a logged miss.
func (b *Backend) read(get descriptor.Getter, obj any) (v any, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("getter panicked", logging.Any("panic", r))
			v, ok = nil, false
		}
	}()
	return get(obj), true
}

// Node implements addressspace.Backend. Variables bound to an object are
// returned as a copy carrying the object's current value.
func (b *Backend) Node(id ua.NodeID) (*ua.Node, bool) {
	n, ok := b.mem.Node(id)
	if !ok {
		return nil, false
	}
	lv, isLive := b.live[id]
	if !isLive {
		return n, true
	}

	c := n.Clone()
	c.Variable.Value = nil
	if obj, found := b.source.Object(lv.descriptor, lv.objectID); found {
		c.Variable.Value, _ = b.read(lv.get, obj)
	}
	return c, true
}

// References implements addressspace.Backend.
func (b *Backend) References(id ua.NodeID) ([]ua.ReferenceNode, error) {
	return b.mem.References(id)
}

// NodeIDs implements addressspace.Enumerator.
func (b *Backend) NodeIDs() []ua.NodeID {
	return b.mem.NodeIDs()
}

// Root returns the id of the folder organizing the top-level instances.
func (b *Backend) Root() ua.NodeID {
	return b.root
}

// Mappings returns the descriptors that passed introspection.
func (b *Backend) Mappings() []*descriptor.NodeMapping {
	return b.mappings
}

// Mapping returns the mapping registered under a descriptor name.
func (b *Backend) Mapping(name string) (*descriptor.NodeMapping, bool) {
	m, ok := b.byName[name]
	return m, ok
}

// Namespace returns the index the backend was built for.
func (b *Backend) Namespace() uint16 {
	return b.ns
}

// Len returns the number of nodes in the backend.
func (b *Backend) Len() int {
	return b.mem.Len()
}

type chainLookup []addressspace.Lookup

func (c chainLookup) Node(id ua.NodeID) (*ua.Node, bool) {
	for _, l := range c {
		if l == nil {
			continue
		}
		if n, ok := l.Node(id); ok {
			return n, true
		}
	}
	return nil, false
}
