package objects

import (
	"github.com/dd0wney/cluso-uaspace/pkg/logging"
	"github.com/dd0wney/cluso-uaspace/pkg/metrics"
)

// DefaultRootFolder is the browse name of the folder that organizes the
// instances of a backend when WithRootFolder is not given.
const DefaultRootFolder = "Objects"

// Option configures a TypeBuilder or Backend.
type Option func(*options)

type options struct {
	logger     logging.Logger
	metrics    *metrics.Registry
	locale     string
	rootFolder string
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics sets the metrics registry.
func WithMetrics(m *metrics.Registry) Option {
	return func(o *options) { o.metrics = m }
}

// WithLocale sets the locale of generated display names.
func WithLocale(locale string) Option {
	return func(o *options) { o.locale = locale }
}

// WithRootFolder sets the browse name of the backend's root folder.
func WithRootFolder(name string) Option {
	return func(o *options) { o.rootFolder = name }
}

func newOptions(opts []Option) options {
	o := options{locale: "en", rootFolder: DefaultRootFolder}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = logging.OrDefault(o.logger)
	return o
}
