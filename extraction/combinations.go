package extraction

import (
	"context"
	"strings"
	"unicode/utf8"

	"rent_scrooper/metrics"
	"rent_scrooper/models"
)

const keywordLineMax = 50

var (
	bedLineWords   = []string{"studio", "bachelor", "bed", "bd"}
	priceLineNoise = []string{"bed", "bath", "bd", "studio", "bachelor"}
)

// pairSet keeps validated pairs in discovery order, dropping exact repeats.
type pairSet struct {
	seen map[ValidatedPair]struct{}
	out  []ValidatedPair
}

func newPairSet() *pairSet {
	return &pairSet{seen: make(map[ValidatedPair]struct{})}
}

func (s *pairSet) add(p ValidatedPair) bool {
	if _, ok := s.seen[p]; ok {
		return false
	}
	s.seen[p] = struct{}{}
	s.out = append(s.out, p)
	return true
}

// Combine discovers (bed, price) pairs with three methods that all feed one
// de-duplicated set. Only when all three find nothing does the fallback run.
func (e *Engine) Combine(ctx context.Context, acc TextAccessor, block models.RawListingBlock) []ValidatedPair {
	set := newPairSet()

	e.structuredPricing(ctx, acc, block, set)
	e.unitProximity(ctx, acc, block, set)
	for _, p := range ParsePairs(block.FullText) {
		e.admit(p, set, "inline")
	}

	if len(set.out) == 0 && ctx.Err() == nil {
		e.fallback(ctx, acc, block, set)
	}
	return set.out
}

// structuredPricing reads pricing fragments that carry both a bed and a price.
func (e *Engine) structuredPricing(ctx context.Context, acc TextAccessor, block models.RawListingBlock, set *pairSet) {
	texts := append([]string(nil), block.Fragments[models.RolePricing]...)
	if live(acc, block) {
		for _, h := range e.queryAll(ctx, acc, block.Ref, e.sel.Pricing) {
			texts = append(texts, e.textOf(ctx, acc, h))
		}
	}
	for _, text := range texts {
		bed, okBed := ParseBed(text)
		price, okPrice := ParsePrice(text)
		if !okBed || !okPrice {
			continue
		}
		e.admit(structuredPair(bed, price), set, "structured")
	}
}

// unitProximity reads unit-type fragments and looks for the price next to them: in the
// fragment itself, or for live elements in the parent and then the next sibling.
func (e *Engine) unitProximity(ctx context.Context, acc TextAccessor, block models.RawListingBlock, set *pairSet) {
	for _, text := range block.Fragments[models.RoleUnitType] {
		bed, okBed := ParseBed(text)
		price, okPrice := ParsePrice(text)
		if okBed && okPrice {
			e.admit(structuredPair(bed, price), set, "unit")
		}
	}
	if !live(acc, block) {
		return
	}
	for _, h := range e.queryAll(ctx, acc, block.Ref, e.sel.Unit) {
		bed, ok := ParseBed(e.textOf(ctx, acc, h))
		if !ok {
			continue
		}
		price, ok := e.nearbyPrice(ctx, acc, h)
		if !ok {
			continue
		}
		e.admit(structuredPair(bed, price), set, "unit")
	}
}

func (e *Engine) nearbyPrice(ctx context.Context, acc TextAccessor, h Handle) (string, bool) {
	if parent := e.parentOf(ctx, acc, h); parent != nil {
		if price, ok := ParsePrice(e.textOf(ctx, acc, parent)); ok {
			return price, true
		}
	}
	if sib := e.nextSiblingOf(ctx, acc, h); sib != nil {
		return ParsePrice(e.textOf(ctx, acc, sib))
	}
	return "", false
}

// fallback takes the best single bed token and best single price token from anywhere
// in the block. Both must be present.
func (e *Engine) fallback(ctx context.Context, acc TextAccessor, block models.RawListingBlock, set *pairSet) {
	bed, _, okBed := SelectFirst(ctx, e.bedStrategies(acc, block))
	price, _, okPrice := SelectFirst(ctx, e.priceStrategies(acc, block))
	if !okBed || !okPrice {
		return
	}
	e.admit(CandidatePair{
		Bed:   FieldCandidate{Kind: KindBedToken, Raw: bed, Source: SourceFallback},
		Price: FieldCandidate{Kind: KindPriceToken, Raw: price, Source: SourceFallback},
	}, set, "fallback")
}

func (e *Engine) bedStrategies(acc TextAccessor, block models.RawListingBlock) []Strategy {
	var out []Strategy
	for _, role := range []models.FragmentRole{models.RoleBeds, models.RoleUnitType} {
		for _, s := range FragmentStrategies(block, role, 1) {
			out = append(out, Recognized(s, ParseBed))
		}
	}
	if live(acc, block) {
		for _, sel := range e.sel.Beds {
			out = append(out, Recognized(e.selectorStrategy(acc, block.Ref, sel, 1), ParseBed))
		}
	}
	for _, line := range keywordLines(block.FullText, func(lower string) bool {
		return containsAny(lower, bedLineWords)
	}) {
		out = append(out, Recognized(TextStrategy("line", line, 1), ParseBed))
	}
	return append(out, Recognized(TextStrategy("full-text", block.FullText, 1), ParseBed))
}

func (e *Engine) priceStrategies(acc TextAccessor, block models.RawListingBlock) []Strategy {
	var out []Strategy
	for _, role := range []models.FragmentRole{models.RolePrice, models.RolePricing} {
		for _, s := range FragmentStrategies(block, role, 1) {
			out = append(out, Recognized(s, ParsePrice))
		}
	}
	if live(acc, block) {
		for _, sel := range e.sel.Price {
			out = append(out, Recognized(e.selectorStrategy(acc, block.Ref, sel, 1), ParsePrice))
		}
	}
	for _, line := range keywordLines(block.FullText, func(lower string) bool {
		return hasCurrency(lower) && !containsAny(lower, priceLineNoise)
	}) {
		out = append(out, Recognized(TextStrategy("line", line, 1), ParsePrice))
	}
	return append(out, Recognized(TextStrategy("full-text", block.FullText, 1), ParsePrice))
}

// keywordLines returns the short lines of text accepted by keep, which sees them lowercased.
func keywordLines(text string, keep func(lower string) bool) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || utf8.RuneCountInString(line) >= keywordLineMax {
			continue
		}
		if keep(strings.ToLower(line)) {
			out = append(out, line)
		}
	}
	return out
}

// admit validates a candidate pair, expands both sides and adds every combination.
func (e *Engine) admit(p CandidatePair, set *pairSet, method string) {
	if !IsValidPrice(p.Price.Raw) {
		metrics.PriceRejections.Inc()
		e.log.Trace().Str("price", p.Price.Raw).Str("method", method).Msg("rejected price token")
		return
	}
	beds := Expand(p.Bed.Raw, BedValue)
	prices := Expand(p.Price.Raw, PriceValue)
	for _, bed := range beds {
		for _, price := range prices {
			if !IsValidPrice(price) {
				metrics.PriceRejections.Inc()
				continue
			}
			if set.add(ValidatedPair{Bed: bed, Price: price}) {
				metrics.Pairs.WithLabelValues(method).Inc()
			}
		}
	}
}

func structuredPair(bed, price string) CandidatePair {
	return CandidatePair{
		Bed:   FieldCandidate{Kind: KindBedToken, Raw: bed, Source: SourceStructuredFragment},
		Price: FieldCandidate{Kind: KindPriceToken, Raw: price, Source: SourceStructuredFragment},
	}
}
