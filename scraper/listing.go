package scraper

import (
	"context"
	"crypto/sha256"
	"strings"

	"rent_scrooper/extraction"
	"rent_scrooper/models"
)

const nearbyMarker = "more rentals near"

// nearbyLocator is implemented by accessors that can tell whether a node is placed after
// the "more rentals near" heading in document order.
type nearbyLocator interface {
	AfterNearbyMarker(ctx context.Context, h extraction.Handle) (bool, error)
}

func nearbyLocatorOf(acc extraction.TextAccessor) nearbyLocator {
	for acc != nil {
		if l, ok := acc.(nearbyLocator); ok {
			return l
		}
		u, ok := acc.(interface{ Unwrap() extraction.TextAccessor })
		if !ok {
			return nil
		}
		acc = u.Unwrap()
	}
	return nil
}

// BuildBlocks finds listing cards under scope with every listing selector in turn and
// turns each distinct card into a raw block. Cards from "more rentals near" sections
// are not local listings and are skipped, both cards that carry the heading and cards
// that follow it on the page.
func BuildBlocks(ctx context.Context, acc extraction.TextAccessor, scope extraction.Handle, selectors []string) []models.RawListingBlock {
	var blocks []models.RawListingBlock
	seen := make(map[[32]byte]struct{})
	locator := nearbyLocatorOf(acc)

	for _, selector := range selectors {
		handles, err := acc.QueryAll(ctx, scope, selector)
		if err != nil {
			continue
		}
		for _, h := range handles {
			text, err := acc.TextOf(ctx, h)
			if err != nil || strings.TrimSpace(text) == "" {
				continue
			}
			if strings.Contains(strings.ToLower(text), nearbyMarker) {
				continue
			}
			if locator != nil {
				if after, err := locator.AfterNearbyMarker(ctx, h); err == nil && after {
					continue
				}
			}
			key := sha256.Sum256([]byte(text))
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			blocks = append(blocks, models.RawListingBlock{FullText: text, Ref: h})
		}
	}
	return dropContainers(blocks)
}

// dropContainers removes blocks whose text wraps another block's text; those are
// result-list wrappers matched by a broad selector, not listings.
func dropContainers(blocks []models.RawListingBlock) []models.RawListingBlock {
	out := make([]models.RawListingBlock, 0, len(blocks))
	for i, b := range blocks {
		container := false
		for j, other := range blocks {
			if i != j && len(other.FullText) < len(b.FullText) && strings.Contains(b.FullText, other.FullText) {
				container = true
				break
			}
		}
		if !container {
			out = append(out, b)
		}
	}
	return out
}

// NoResults reports whether page text says the search came back empty.
func NoResults(pageText string) bool {
	lower := strings.ToLower(pageText)
	for _, marker := range []string{
		"no results found",
		"no listings found",
		"no exact matches",
		"no properties found",
		"sorry, no results",
		"we couldn't find any",
	} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
