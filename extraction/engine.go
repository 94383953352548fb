package extraction

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"rent_scrooper/metrics"
	"rent_scrooper/models"
)

// Engine turns raw listing blocks into listing records. It holds no per-call state and
// is safe for concurrent use once configured.
type Engine struct {
	sel Selectors
	now func() time.Time
	log zerolog.Logger
}

func NewEngine(sel Selectors, logger zerolog.Logger) *Engine {
	return &Engine{
		sel: sel.Merge(DefaultSelectors()),
		now: time.Now,
		log: logger.With().Str("component", "extraction").Logger(),
	}
}

// SetClock replaces the time source used to stamp records.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

func (e *Engine) Selectors() Selectors {
	return e.sel
}

// ExtractListingRecords resolves name and address, generates validated (bed, price)
// pairs and assembles one record per pair. acc may be nil for pure-text blocks.
// It never panics and never returns an error; an unusable block yields no records.
func (e *Engine) ExtractListingRecords(ctx context.Context, acc TextAccessor, block models.RawListingBlock, loc models.Location) (records []models.ListingRecord) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().Str("panic", fmt.Sprint(r)).Msg("listing extraction aborted")
			metrics.Listings.WithLabelValues("failed").Inc()
			records = nil
		}
	}()

	address := e.ResolveAddress(ctx, acc, block)
	name := e.ResolveName(ctx, acc, block, address)
	pairs := e.Combine(ctx, acc, block)

	records = Assemble(name, address, loc, pairs, e.now())
	switch {
	case name == models.UnknownName:
		metrics.Listings.WithLabelValues("unnamed").Inc()
		e.log.Debug().Str("address", address).Int("pairs", len(pairs)).Msg("dropping listing without a name")
	case len(records) == 0:
		metrics.Listings.WithLabelValues("empty").Inc()
		e.log.Debug().Str("name", name).Msg("no bed/price pairs found")
	default:
		metrics.Listings.WithLabelValues("extracted").Inc()
	}
	return records
}

// ResolveAddress runs the address cascade: fragments and selectors first, then a
// full-text scan. Structured hits shorter than eleven characters are ignored.
func (e *Engine) ResolveAddress(ctx context.Context, acc TextAccessor, block models.RawListingBlock) string {
	strategies := FragmentStrategies(block, models.RoleAddress, addressMinLength)
	if live(acc, block) {
		for _, sel := range e.sel.Address {
			strategies = append(strategies, e.selectorStrategy(acc, block.Ref, sel, addressMinLength))
		}
	}
	if v, via, ok := SelectFirst(ctx, strategies); ok {
		e.log.Trace().Str("via", via).Str("address", v).Msg("address resolved")
		return collapseSpaces(v)
	}
	if v, ok := AddressFromText(block.FullText); ok {
		return v
	}
	return models.AddressNotFound
}

// ResolveName runs the name cascade. A structured name that is really an address is
// discarded in favour of one derived from the resolved address.
func (e *Engine) ResolveName(ctx context.Context, acc TextAccessor, block models.RawListingBlock, address string) string {
	strategies := FragmentStrategies(block, models.RoleName, nameMinLength)
	if live(acc, block) {
		for _, sel := range e.sel.Name {
			strategies = append(strategies, e.selectorStrategy(acc, block.Ref, sel, nameMinLength))
		}
	}
	if v, _, ok := SelectFirst(ctx, strategies); ok && !LooksLikeAddress(v) {
		return collapseSpaces(v)
	}
	if address != models.AddressNotFound {
		return NameFromAddress(address)
	}
	if v, ok := NameFromText(block.FullText); ok {
		return v
	}
	return models.UnknownName
}

func live(acc TextAccessor, block models.RawListingBlock) bool {
	return acc != nil && block.Ref != nil
}

// selectorStrategy is SelectorStrategy with accessor failures counted and logged.
func (e *Engine) selectorStrategy(acc TextAccessor, scope Handle, selector string, minLen int) Strategy {
	s := SelectorStrategy(acc, scope, selector, minLen)
	lookup := s.Lookup
	s.Lookup = func(ctx context.Context) (string, error) {
		v, err := lookup(ctx)
		if err != nil {
			e.accessorFailed("query_all", selector, err)
		}
		return v, err
	}
	return s
}

func (e *Engine) accessorFailed(op, selector string, err error) {
	metrics.AccessorFailures.WithLabelValues(op).Inc()
	e.log.Debug().Err(err).Str("op", op).Str("selector", selector).Msg("accessor call failed")
}

func (e *Engine) queryAll(ctx context.Context, acc TextAccessor, scope Handle, selectors []string) []Handle {
	if len(selectors) == 0 {
		return nil
	}
	group := strings.Join(selectors, ", ")
	handles, err := acc.QueryAll(ctx, scope, group)
	if err != nil {
		e.accessorFailed("query_all", group, err)
		return nil
	}
	return handles
}

func (e *Engine) textOf(ctx context.Context, acc TextAccessor, h Handle) string {
	if h == nil {
		return ""
	}
	text, err := acc.TextOf(ctx, h)
	if err != nil {
		e.accessorFailed("text_of", "", err)
		return ""
	}
	return strings.TrimSpace(text)
}

func (e *Engine) parentOf(ctx context.Context, acc TextAccessor, h Handle) Handle {
	p, err := acc.ParentOf(ctx, h)
	if err != nil {
		e.accessorFailed("parent_of", "", err)
		return nil
	}
	return p
}

func (e *Engine) nextSiblingOf(ctx context.Context, acc TextAccessor, h Handle) Handle {
	s, err := acc.NextSiblingOf(ctx, h)
	if err != nil {
		e.accessorFailed("next_sibling_of", "", err)
		return nil
	}
	return s
}
