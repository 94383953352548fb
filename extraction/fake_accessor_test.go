package extraction

import (
	"context"
	"errors"
	"time"
)

// fakeAccessor serves a fixed node graph. Handles are plain strings.
type fakeAccessor struct {
	all     map[string][]Handle
	text    map[Handle]string
	parent  map[Handle]Handle
	sibling map[Handle]Handle
	err     error
	panics  bool
	delay   time.Duration
}

var errBroken = errors.New("element detached")

func (f *fakeAccessor) wait(ctx context.Context) error {
	if f.panics {
		panic("accessor exploded")
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.err
}

func (f *fakeAccessor) QueryOne(ctx context.Context, scope Handle, selector string) (Handle, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	if hs := f.all[selector]; len(hs) > 0 {
		return hs[0], nil
	}
	return nil, nil
}

func (f *fakeAccessor) QueryAll(ctx context.Context, scope Handle, selector string) ([]Handle, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return f.all[selector], nil
}

func (f *fakeAccessor) TextOf(ctx context.Context, h Handle) (string, error) {
	if err := f.wait(ctx); err != nil {
		return "", err
	}
	return f.text[h], nil
}

func (f *fakeAccessor) ParentOf(ctx context.Context, h Handle) (Handle, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return f.parent[h], nil
}

func (f *fakeAccessor) NextSiblingOf(ctx context.Context, h Handle) (Handle, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return f.sibling[h], nil
}

// testSelectors uses one selector per list so fake lookups key on it directly.
func testSelectors() Selectors {
	return Selectors{
		Name:    []string{".name"},
		Address: []string{".addr"},
		Pricing: []string{".pricing"},
		Unit:    []string{".unit"},
		Beds:    []string{".beds"},
		Price:   []string{".price"},
	}
}
