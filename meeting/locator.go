package meeting

import (
	"errors"
	"fmt"
)

// ErrNoMatch is returned when none of a control's candidate locators
// resolved to an element.
var ErrNoMatch = errors.New("no candidate locator matched")

// Strategy is the way a Locator finds an element.
type Strategy string

const (
	// StrategyCSS resolves a locator with querySelector.
	StrategyCSS Strategy = "css"
	// StrategyText resolves the first element under a CSS scope whose text
	// matches a regular expression.
	StrategyText Strategy = "text"
	// StrategyXPath resolves a locator with an XPath expression.
	StrategyXPath Strategy = "xpath"
)

// Locator is one candidate way of finding a UI control.
type Locator struct {
	Strategy Strategy
	Query    string
	// Pattern is the JS regular expression used by StrategyText.
	Pattern string
}

// ByCSS builds a CSS locator.
func ByCSS(selector string) Locator {
	return Locator{Strategy: StrategyCSS, Query: selector}
}

// ByText builds a text locator: elements matching scope whose text matches pattern.
func ByText(scope, pattern string) Locator {
	return Locator{Strategy: StrategyText, Query: scope, Pattern: pattern}
}

// ByXPath builds an XPath locator.
func ByXPath(expr string) Locator {
	return Locator{Strategy: StrategyXPath, Query: expr}
}

func (l Locator) String() string {
	if l.Strategy == StrategyText {
		return fmt.Sprintf("text(%s ~ /%s/)", l.Query, l.Pattern)
	}
	return fmt.Sprintf("%s(%s)", l.Strategy, l.Query)
}
