package visibility

import (
	"context"
	"errors"
	"log/slog"
	"reflect"

	"github.com/hupe1980/descvis/internal/logging"
)

// LevelTrace is used for the per-filter query messages.
const LevelTrace = logging.LevelTrace

// Evaluation stages, reported in veto and failure logs.
const (
	StageType     = "type"
	StageInstance = "instance"
)

// Observer is notified of vetoes and recoverable failures. It is used for
// metrics; implementations must be safe for concurrent use.
type Observer interface {
	Vetoed(ctx context.Context, f Filter, item Item, stage string)
	Failed(ctx context.Context, f Filter, item Item, err error)
}

type noopObserver struct{}

func (noopObserver) Vetoed(context.Context, Filter, Item, string) {}
func (noopObserver) Failed(context.Context, Filter, Item, error)  {}

// Chain evaluates the filters of a Source against candidate items.
type Chain struct {
	source   Source
	ledger   *Ledger
	logger   *slog.Logger
	observer Observer
}

// Option configures a Chain.
type Option func(*Chain)

// WithLedger sets the ledger deciding the severity of failure logs.
// Chains sharing a process should share a ledger.
func WithLedger(l *Ledger) Option {
	return func(c *Chain) {
		if l != nil {
			c.ledger = l
		}
	}
}

// WithLogger sets the logger. Without it the logger is taken from the
// context passed to Apply (see logging.FromContext).
func WithLogger(logger *slog.Logger) Option {
	return func(c *Chain) {
		c.logger = logger
	}
}

// WithObserver sets the observer notified of vetoes and failures.
func WithObserver(o Observer) Option {
	return func(c *Chain) {
		if o != nil {
			c.observer = o
		}
	}
}

// NewChain creates a chain over source. A nil source has no filters.
func NewChain(source Source, opts ...Option) *Chain {
	if source == nil {
		source = Filters(nil)
	}

	c := &Chain{
		source:   source,
		observer: noopObserver{},
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.ledger == nil {
		c.ledger = NewLedger()
	}

	return c
}

// Ledger returns the ledger used by c.
func (c *Chain) Ledger() *Ledger {
	return c.ledger
}

// Apply returns the items of the list visible in scope, preserving order.
//
// The scope type is reflect.TypeOf(scope). When scope is nil the type-level
// checks are skipped but every filter is still asked Filter(nil, item).
// A nil items slice is rejected with an error matching ErrInvalidArgument.
func Apply[T Item](ctx context.Context, c *Chain, scope any, items []T) ([]T, error) {
	scopeType := reflect.TypeOf(scope)

	if items == nil {
		return nil, &InvalidArgumentError{ScopeType: TypeName(scopeType), Caller: CallerFrom(ctx)}
	}

	return evaluate(ctx, c, scope, scopeType, true, items)
}

// ApplyType returns the items visible in scopes of type scopeType,
// preserving order. Only FilterType is consulted.
func ApplyType[T Item](ctx context.Context, c *Chain, scopeType reflect.Type, items []T) ([]T, error) {
	if items == nil {
		return nil, &InvalidArgumentError{ScopeType: TypeName(scopeType), Caller: CallerFrom(ctx)}
	}

	return evaluate(ctx, c, nil, scopeType, false, items)
}

func evaluate[T Item](
	ctx context.Context,
	c *Chain,
	scope any,
	scopeType reflect.Type,
	instance bool,
	items []T,
) ([]T, error) {
	logger := c.logger
	if logger == nil {
		logger = logging.FromContext(ctx)
	}

	filters := c.source.Snapshot()
	visible := make([]T, 0, len(items))

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		logger.Debug("determining visibility",
			slog.String("descriptor", item.ID()),
			slog.String("scopeType", TypeName(scopeType)),
			slog.Any("scope", scope),
		)

		ok, err := c.visible(ctx, logger, filters, scope, scopeType, instance, item)
		if err != nil {
			return nil, err
		}

		if ok {
			visible = append(visible, item)
		}
	}

	return visible, nil
}

// visible consults filters in order and stops at the first veto.
func (c *Chain) visible(
	ctx context.Context,
	logger *slog.Logger,
	filters []Filter,
	scope any,
	scopeType reflect.Type,
	instance bool,
	item Item,
) (bool, error) {
	for _, f := range filters {
		logger.Log(ctx, LevelTrace, "querying filter",
			slog.String("filter", f.Name()),
			slog.String("descriptor", item.ID()),
			slog.String("scopeType", TypeName(scopeType)),
		)

		ok, stage, err := consult(f, scope, scopeType, instance, item)

		switch {
		case err == nil && ok:
			continue

		case err == nil:
			logger.Debug("filter hides descriptor",
				slog.String("filter", f.Name()),
				slog.String("descriptor", item.DisplayName()),
				slog.String("stage", stage),
				slog.String("scopeType", TypeName(scopeType)),
				slog.Any("scope", scope),
			)
			c.observer.Vetoed(ctx, f, item, stage)

			return false, nil

		case errors.Is(err, ErrUnrecoverable):
			logger.Log(ctx, LevelHigh, "unrecoverable failure from filter",
				slog.String("filter", f.Name()),
				slog.String("descriptor", item.DisplayName()),
				slog.String("stage", stage),
				slog.Any("scope", scope),
				slog.String("error", err.Error()),
			)

			return false, &FilterError{Filter: f.Name(), Item: item.ID(), Err: err}

		default:
			logger.Log(ctx, c.ledger.SeverityFor(f), "uncaught failure from filter",
				slog.String("filter", f.Name()),
				slog.String("descriptor", item.DisplayName()),
				slog.String("stage", stage),
				slog.Any("scope", scope),
				slog.String("error", err.Error()),
			)
			c.observer.Failed(ctx, f, item, err)

			return false, nil
		}
	}

	return true, nil
}

// consult asks f about item, converting a panic into a *PanicError.
func consult(
	f Filter,
	scope any,
	scopeType reflect.Type,
	instance bool,
	item Item,
) (ok bool, stage string, err error) {
	stage = StageType

	defer func() {
		if r := recover(); r != nil {
			ok = false
			err = &PanicError{Value: r}
		}
	}()

	if scopeType != nil {
		ok, err = f.FilterType(scopeType, item)
		if err != nil || !ok {
			return ok, stage, err
		}
	}

	if !instance {
		return true, stage, nil
	}

	stage = StageInstance
	ok, err = f.Filter(scope, item)

	return ok, stage, err
}

// TypeName returns the name of t for messages, or "<nil>".
func TypeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}

	return t.String()
}
