package extraction

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"rent_scrooper/models"
)

// Strategy is one named way of looking up a field's text.
// Lookup returning an error or short text means "absent"; the cascade moves on.
type Strategy struct {
	Name      string
	MinLength int
	Lookup    func(ctx context.Context) (string, error)
}

// SelectFirst runs strategies in order and returns the first trimmed result that is at
// least MinLength runes long, together with the name of the strategy that produced it.
func SelectFirst(ctx context.Context, strategies []Strategy) (string, string, bool) {
	for _, s := range strategies {
		if ctx.Err() != nil {
			return "", "", false
		}
		text, err := s.Lookup(ctx)
		if err != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" || utf8.RuneCountInString(text) < minLength(s.MinLength) {
			continue
		}
		return text, s.Name, true
	}
	return "", "", false
}

func minLength(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// TextStrategy always yields text.
func TextStrategy(name, text string, minLen int) Strategy {
	return Strategy{
		Name:      name,
		MinLength: minLen,
		Lookup: func(context.Context) (string, error) {
			return text, nil
		},
	}
}

// FragmentStrategies yields one strategy per pre-extracted fragment of role, in order.
func FragmentStrategies(block models.RawListingBlock, role models.FragmentRole, minLen int) []Strategy {
	frags := block.Fragments[role]
	out := make([]Strategy, 0, len(frags))
	for i, f := range frags {
		out = append(out, TextStrategy(fmt.Sprintf("fragment:%s[%d]", role, i), f, minLen))
	}
	return out
}

// SelectorStrategy queries every element matching selector under scope and yields the
// first whose text meets minLen.
func SelectorStrategy(acc TextAccessor, scope Handle, selector string, minLen int) Strategy {
	return Strategy{
		Name:      "selector:" + selector,
		MinLength: minLen,
		Lookup: func(ctx context.Context) (string, error) {
			handles, err := acc.QueryAll(ctx, scope, selector)
			if err != nil {
				return "", err
			}
			for _, h := range handles {
				text, err := acc.TextOf(ctx, h)
				if err != nil {
					continue
				}
				text = strings.TrimSpace(text)
				if text != "" && utf8.RuneCountInString(text) >= minLength(minLen) {
					return text, nil
				}
			}
			return "", nil
		},
	}
}

// Recognized pipes a strategy's text through a recognizer; unrecognized text is absent.
func Recognized(s Strategy, recognize func(string) (string, bool)) Strategy {
	lookup := s.Lookup
	return Strategy{
		Name:      s.Name,
		MinLength: s.MinLength,
		Lookup: func(ctx context.Context) (string, error) {
			text, err := lookup(ctx)
			if err != nil {
				return "", err
			}
			token, ok := recognize(text)
			if !ok {
				return "", nil
			}
			return token, nil
		},
	}
}
