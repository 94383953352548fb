package scraper

import (
	"context"
	"fmt"

	"github.com/playwright-community/playwright-go"

	"rent_scrooper/extraction"
)

// PageAccessor serves a live browser page. Handles are playwright.ElementHandle;
// a nil scope means the page itself. Playwright calls are not cancellable, so callers
// wrap this accessor with extraction.WithCallTimeout.
const precedingNearbyXPath = `xpath=preceding::*[not(self::script) and not(self::style) and ` +
	`contains(translate(., 'ABCDEFGHIJKLMNOPQRSTUVWXYZ', 'abcdefghijklmnopqrstuvwxyz'), 'more rentals near')]`

type PageAccessor struct {
	page playwright.Page
}

func NewPageAccessor(page playwright.Page) *PageAccessor {
	return &PageAccessor{page: page}
}

func element(h extraction.Handle) (playwright.ElementHandle, error) {
	el, ok := h.(playwright.ElementHandle)
	if !ok {
		return nil, fmt.Errorf("unexpected handle type %T", h)
	}
	return el, nil
}

func (a *PageAccessor) QueryOne(ctx context.Context, scope extraction.Handle, selector string) (extraction.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var (
		found playwright.ElementHandle
		err   error
	)
	if scope == nil {
		found, err = a.page.QuerySelector(selector)
	} else {
		el, e := element(scope)
		if e != nil {
			return nil, e
		}
		found, err = el.QuerySelector(selector)
	}
	if err != nil || found == nil {
		return nil, err
	}
	return found, nil
}

func (a *PageAccessor) QueryAll(ctx context.Context, scope extraction.Handle, selector string) ([]extraction.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var (
		found []playwright.ElementHandle
		err   error
	)
	if scope == nil {
		found, err = a.page.QuerySelectorAll(selector)
	} else {
		el, e := element(scope)
		if e != nil {
			return nil, e
		}
		found, err = el.QuerySelectorAll(selector)
	}
	if err != nil {
		return nil, err
	}
	out := make([]extraction.Handle, 0, len(found))
	for _, f := range found {
		out = append(out, f)
	}
	return out, nil
}

func (a *PageAccessor) TextOf(ctx context.Context, h extraction.Handle) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	el, err := element(h)
	if err != nil {
		return "", err
	}
	return el.InnerText()
}

func (a *PageAccessor) ParentOf(ctx context.Context, h extraction.Handle) (extraction.Handle, error) {
	return a.QueryOne(ctx, h, "xpath=..")
}

func (a *PageAccessor) NextSiblingOf(ctx context.Context, h extraction.Handle) (extraction.Handle, error) {
	return a.QueryOne(ctx, h, "xpath=following-sibling::*[1]")
}

// AfterNearbyMarker reports whether any element before h carries the nearby heading.
func (a *PageAccessor) AfterNearbyMarker(ctx context.Context, h extraction.Handle) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	el, err := element(h)
	if err != nil {
		return false, err
	}
	found, err := el.QuerySelector(precedingNearbyXPath)
	if err != nil {
		return false, err
	}
	return found != nil, nil
}
