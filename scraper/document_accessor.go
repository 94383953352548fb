package scraper

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"rent_scrooper/extraction"
)

// DocumentAccessor serves a parsed HTML document. Handles are *goquery.Selection
// holding exactly one node; a nil scope means the whole document.
type DocumentAccessor struct {
	root *goquery.Selection

	markerOnce sync.Once
	elements   *goquery.Selection
	markerIdx  int
}

func NewDocumentAccessor(root *goquery.Selection) *DocumentAccessor {
	return &DocumentAccessor{root: root}
}

func (a *DocumentAccessor) scope(h extraction.Handle) (*goquery.Selection, error) {
	if h == nil {
		return a.root, nil
	}
	sel, ok := h.(*goquery.Selection)
	if !ok {
		return nil, fmt.Errorf("unexpected handle type %T", h)
	}
	return sel, nil
}

func (a *DocumentAccessor) find(ctx context.Context, scope extraction.Handle, selector string) (*goquery.Selection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sel, err := a.scope(scope)
	if err != nil {
		return nil, err
	}
	matcher, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("compile selector %q: %w", selector, err)
	}
	return sel.FindMatcher(matcher), nil
}

func (a *DocumentAccessor) QueryOne(ctx context.Context, scope extraction.Handle, selector string) (extraction.Handle, error) {
	found, err := a.find(ctx, scope, selector)
	if err != nil || found.Length() == 0 {
		return nil, err
	}
	return found.First(), nil
}

func (a *DocumentAccessor) QueryAll(ctx context.Context, scope extraction.Handle, selector string) ([]extraction.Handle, error) {
	found, err := a.find(ctx, scope, selector)
	if err != nil {
		return nil, err
	}
	out := make([]extraction.Handle, 0, found.Length())
	found.Each(func(_ int, s *goquery.Selection) {
		out = append(out, s)
	})
	return out, nil
}

func (a *DocumentAccessor) TextOf(ctx context.Context, h extraction.Handle) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	sel, err := a.scope(h)
	if err != nil || sel.Length() == 0 {
		return "", err
	}
	fragment, err := goquery.OuterHtml(sel)
	if err != nil {
		return "", fmt.Errorf("render node: %w", err)
	}
	return VisibleText(fragment), nil
}

func (a *DocumentAccessor) ParentOf(ctx context.Context, h extraction.Handle) (extraction.Handle, error) {
	return a.relative(ctx, h, (*goquery.Selection).Parent)
}

func (a *DocumentAccessor) NextSiblingOf(ctx context.Context, h extraction.Handle) (extraction.Handle, error) {
	return a.relative(ctx, h, (*goquery.Selection).Next)
}

func (a *DocumentAccessor) relative(ctx context.Context, h extraction.Handle, step func(*goquery.Selection) *goquery.Selection) (extraction.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sel, err := a.scope(h)
	if err != nil {
		return nil, err
	}
	next := step(sel)
	if next.Length() == 0 {
		return nil, nil
	}
	return next, nil
}

// AfterNearbyMarker reports whether h comes after the "more rentals near" heading.
func (a *DocumentAccessor) AfterNearbyMarker(ctx context.Context, h extraction.Handle) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	sel, err := a.scope(h)
	if err != nil || sel.Length() == 0 {
		return false, err
	}
	a.markerOnce.Do(a.locateMarker)
	if a.markerIdx < 0 {
		return false, nil
	}
	return a.elements.IndexOfNode(sel.Get(0)) > a.markerIdx, nil
}

// locateMarker finds the innermost element whose text carries the nearby heading.
func (a *DocumentAccessor) locateMarker() {
	a.markerIdx = -1
	a.elements = a.root.Find("*")
	hasMarker := func(s *goquery.Selection) bool {
		return strings.Contains(strings.ToLower(s.Text()), nearbyMarker)
	}
	a.elements.EachWithBreak(func(i int, s *goquery.Selection) bool {
		if s.Is("head, title, script, style, noscript") || !hasMarker(s) {
			return true
		}
		if s.Children().FilterFunction(func(_ int, c *goquery.Selection) bool { return hasMarker(c) }).Length() > 0 {
			return true
		}
		a.markerIdx = i
		return false
	})
}
