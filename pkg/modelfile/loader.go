// Package modelfile loads address space nodes from XML model design
// documents. Element names map to node classes through a dispatch table;
// symbolic names are turned into node ids by a nodeids.Resolver.
package modelfile

import (
	"context"
	"embed"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"time"

	"github.com/dd0wney/cluso-uaspace/pkg/addressspace"
	"github.com/dd0wney/cluso-uaspace/pkg/logging"
	"github.com/dd0wney/cluso-uaspace/pkg/metrics"
	"github.com/dd0wney/cluso-uaspace/pkg/nodeids"
)

// ErrMalformedModel is returned for documents that are not well-formed XML.
var ErrMalformedModel = errors.New("malformed model document")

//go:embed standard.xml
var standardFS embed.FS

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(ld *Loader) { ld.logger = l }
}

// WithMetrics sets the metrics registry.
func WithMetrics(m *metrics.Registry) Option {
	return func(ld *Loader) { ld.metrics = m }
}

// WithLocale sets the locale of parsed display names.
func WithLocale(locale string) Option {
	return func(ld *Loader) { ld.locale = locale }
}

// Loader parses model documents into memory backends.
type Loader struct {
	ids     nodeids.Resolver
	locale  string
	logger  logging.Logger
	metrics *metrics.Registry
}

// NewLoader creates a loader resolving names through ids.
func NewLoader(ids nodeids.Resolver, opts ...Option) *Loader {
	l := &Loader{ids: ids, locale: "en"}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = logging.OrDefault(l.logger).With(logging.Component("modelfile"))
	return l
}

func (l *Loader) parser() *parser {
	return &parser{locale: l.locale, logger: l.logger, metrics: l.metrics}
}

// Parse decodes a document and parses each top-level element. Elements
// without a parser or without a resolvable id are skipped.
func (l *Loader) Parse(r io.Reader) ([]ParsedElement, error) {
	var root element
	if err := xml.NewDecoder(r).Decode(&root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedModel, err)
	}

	p := l.parser()
	out := make([]ParsedElement, 0, len(root.Children))
	for i := range root.Children {
		if pe, ok := p.parse(&root.Children[i], l.ids); ok {
			out = append(out, pe)
		}
	}
	return out, nil
}

// Load reads src into a new MemoryBackend. A missing document yields an
// empty backend.
func (l *Loader) Load(ctx context.Context, src Source) (*addressspace.MemoryBackend, error) {
	start := time.Now()
	mem := addressspace.NewMemoryBackend()

	rc, err := src.Open(ctx)
	if errors.Is(err, fs.ErrNotExist) {
		l.logger.Info("model document does not exist, no nodes added", logging.Path(src.Name()))
		l.metrics.RecordModelLoad(src.Name(), "missing", time.Since(start), 0)
		return mem, nil
	}
	if err != nil {
		l.metrics.RecordModelLoad(src.Name(), "error", time.Since(start), 0)
		return nil, fmt.Errorf("open %s: %w", src.Name(), err)
	}
	defer rc.Close()

	elements, err := l.Parse(rc)
	if err != nil {
		l.metrics.RecordModelLoad(src.Name(), "error", time.Since(start), 0)
		return nil, fmt.Errorf("parse %s: %w", src.Name(), err)
	}
	l.Install(mem, elements)

	elapsed := time.Since(start)
	l.metrics.RecordModelLoad(src.Name(), "ok", elapsed, mem.Len())
	l.logger.Info("model loaded", logging.Path(src.Name()), logging.Count(mem.Len()), logging.Latency(elapsed))
	return mem, nil
}

// Install adds parsed elements to mem: all nodes first, then all
// references. Duplicate nodes are logged and dropped.
func (l *Loader) Install(mem *addressspace.MemoryBackend, elements []ParsedElement) {
	for _, pe := range elements {
		for _, n := range pe.Nodes {
			if err := mem.AddNode(n); err != nil {
				l.logger.Warn("duplicate node dropped", logging.NodeID(n.ID), logging.Error(err))
				l.metrics.RecordSkippedElement("duplicate")
			}
		}
	}
	for _, pe := range elements {
		mem.AddReferences(pe.References...)
	}
}

// Standard loads the embedded namespace 0 model: the reference type
// hierarchy, the base object and variable types and the standard folders.
func Standard(ctx context.Context, opts ...Option) (*addressspace.MemoryBackend, error) {
	return NewLoader(nodeids.Standard(), opts...).Load(ctx, FSSource{FS: standardFS, Path: "standard.xml"})
}

// Factory returns an addressspace.Factory that loads model once its
// namespace index is assigned. The symbolic names of the document come
// from the CSV at ids, parsed for that index and chained with the
// standard names. A nil ids source uses the standard names only.
func Factory(model, ids Source, opts ...Option) addressspace.Factory {
	return func(ns uint16, _ addressspace.Lookup) (addressspace.Backend, error) {
		ctx := context.Background()
		resolver, err := namespaceResolver(ctx, ids, ns)
		if err != nil {
			return nil, err
		}
		return NewLoader(resolver, opts...).Load(ctx, model)
	}
}

func namespaceResolver(ctx context.Context, ids Source, ns uint16) (nodeids.Resolver, error) {
	if ids == nil {
		return nodeids.Standard(), nil
	}
	rc, err := ids.Open(ctx)
	if errors.Is(err, fs.ErrNotExist) {
		return nodeids.Standard(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", ids.Name(), err)
	}
	defer rc.Close()

	table, err := nodeids.ParseCSV(rc, ns)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", ids.Name(), err)
	}
	return nodeids.Chain(table, nodeids.Standard()), nil
}
