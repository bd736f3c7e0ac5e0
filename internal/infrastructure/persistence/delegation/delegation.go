package delegation

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/delegates/backend/internal/domain/shared"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

const tracerName = "github.com/delegates/backend/delegation"

// target is one association that attributes are delegated to.
type target struct {
	name   string
	rel    *schema.Relationship
	schema *schema.Schema
}

// binding routes one delegated attribute to a field of its target.
type binding struct {
	target *target
	field  *schema.Field
}

// Delegator proxies attribute access from records of type T to their
// associations and drives T's save lifecycle. It is immutable after New and
// safe for concurrent use; the records passed to it are not.
type Delegator[T any] struct {
	db             *gorm.DB
	logger         *zap.Logger
	tracer         trace.Tracer
	metrics        *saveMetrics
	schema         *schema.Schema
	validator      *recordValidator
	targets        []*target
	bindings       map[string]binding
	attributes     []string
	hooks          []Hook
	partialUpdates bool
}

type delegationSpec struct {
	association string
	attributes  []string
}

type options struct {
	delegations    []delegationSpec
	hooks          []Hook
	logger         *zap.Logger
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	partialUpdates bool
}

// Option configures a Delegator.
type Option func(*options)

// To delegates the given attributes to the named association. The
// association must be a has-one or belongs-to pointer field of T.
func To(association string, attributes ...string) Option {
	return func(o *options) {
		o.delegations = append(o.delegations, delegationSpec{
			association: association,
			attributes:  attributes,
		})
	}
}

// WithHooks registers lifecycle hooks, run in the given order.
func WithHooks(hooks ...Hook) Option {
	return func(o *options) {
		o.hooks = append(o.hooks, hooks...)
	}
}

// WithLogger sets the logger used to report swallowed association errors.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithTracerProvider overrides the global OpenTelemetry tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}

// WithMeterProvider overrides the global OpenTelemetry meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.meterProvider = mp
	}
}

// WithPartialUpdates makes saves of persisted records write only changed
// columns, and skip records without changes.
func WithPartialUpdates(enabled bool) Option {
	return func(o *options) {
		o.partialUpdates = enabled
	}
}

// New builds a Delegator for T. It fails with shared.ErrInvalidDelegation
// when the delegation map does not fit T's schema.
func New[T any](db *gorm.DB, opts ...Option) (*Delegator[T], error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.tracerProvider == nil {
		o.tracerProvider = otel.GetTracerProvider()
	}
	if o.meterProvider == nil {
		o.meterProvider = otel.GetMeterProvider()
	}

	if _, ok := any(new(T)).(Record); !ok {
		return nil, invalidDelegation("%T does not embed delegation.Model", new(T))
	}

	s, err := schema.Parse(new(T), &sync.Map{}, db.NamingStrategy)
	if err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}

	metrics, err := newSaveMetrics(o.meterProvider)
	if err != nil {
		return nil, err
	}

	d := &Delegator[T]{
		db:             db,
		logger:         o.logger.Named("delegation"),
		tracer:         o.tracerProvider.Tracer(tracerName),
		metrics:        metrics,
		schema:         s,
		validator:      newRecordValidator(db.NamingStrategy),
		bindings:       make(map[string]binding),
		hooks:          o.hooks,
		partialUpdates: o.partialUpdates,
	}

	for _, spec := range o.delegations {
		t, err := d.target(spec.association)
		if err != nil {
			return nil, err
		}
		for _, attr := range spec.attributes {
			if err := d.bind(t, attr); err != nil {
				return nil, err
			}
		}
	}

	return d, nil
}

// target returns the target for association, registering it on first use.
func (d *Delegator[T]) target(association string) (*target, error) {
	for _, t := range d.targets {
		if t.name == association {
			return t, nil
		}
	}

	rel, ok := d.schema.Relationships.Relations[association]
	if !ok {
		return nil, invalidDelegation("%s has no association %q", d.schema.Name, association)
	}
	if rel.Type != schema.HasOne && rel.Type != schema.BelongsTo {
		return nil, invalidDelegation("association %s.%s is %s, want has_one or belongs_to",
			d.schema.Name, association, rel.Type)
	}
	if rel.Field.FieldType.Kind() != reflect.Ptr {
		return nil, invalidDelegation("association %s.%s must be a pointer", d.schema.Name, association)
	}
	if _, ok := reflect.New(rel.FieldSchema.ModelType).Interface().(Record); !ok {
		return nil, invalidDelegation("%s does not embed delegation.Model", rel.FieldSchema.Name)
	}

	t := &target{name: association, rel: rel, schema: rel.FieldSchema}
	d.targets = append(d.targets, t)
	return t, nil
}

func (d *Delegator[T]) bind(t *target, attr string) error {
	f := t.schema.LookUpField(attr)
	if f == nil || f.DBName == "" {
		return invalidDelegation("%s has no attribute %q", t.schema.Name, attr)
	}
	if f.PrimaryKey {
		return invalidDelegation("cannot delegate primary key %s.%s", t.schema.Name, f.DBName)
	}
	if own := d.schema.LookUpField(f.DBName); own != nil {
		return invalidDelegation("%s already has attribute %q", d.schema.Name, f.DBName)
	}
	if _, dup := d.bindings[f.DBName]; dup {
		return invalidDelegation("attribute %q is delegated twice", f.DBName)
	}

	b := binding{target: t, field: f}
	d.bindings[f.DBName] = b
	d.bindings[f.Name] = b
	d.attributes = append(d.attributes, f.DBName)
	return nil
}

// Attributes returns the delegated attribute names in declaration order.
func (d *Delegator[T]) Attributes() []string {
	return append([]string(nil), d.attributes...)
}

// Delegates reports whether attr is delegated.
func (d *Delegator[T]) Delegates(attr string) bool {
	_, ok := d.bindings[attr]
	return ok
}

func (d *Delegator[T]) lookup(attr string) (binding, error) {
	b, ok := d.bindings[attr]
	if !ok {
		return binding{}, &UnknownAttributeError{Model: d.schema.Name, Attribute: attr}
	}
	return b, nil
}

func invalidDelegation(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{shared.ErrInvalidDelegation}, args...)...)
}
