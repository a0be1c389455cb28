package browser

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Strategy is how a Locator matches elements.
type Strategy string

const (
	ByID    Strategy = "id"
	ByName  Strategy = "name"
	ByCSS   Strategy = "css"
	ByXPath Strategy = "xpath"
)

// Locator identifies an element within the current window.
type Locator struct {
	By    Strategy
	Value string
}

// ID locates by the id attribute.
func ID(v string) Locator { return Locator{By: ByID, Value: v} }

// Name locates by the name attribute.
func Name(v string) Locator { return Locator{By: ByName, Value: v} }

// CSS locates by CSS selector.
func CSS(v string) Locator { return Locator{By: ByCSS, Value: v} }

// XPath locates by XPath expression.
func XPath(v string) Locator { return Locator{By: ByXPath, Value: v} }

// ParseLocator parses the "strategy=value" form, e.g. "id=button1" or
// "xpath=//a[1]". A value without a strategy prefix is treated as CSS.
func ParseLocator(s string) (Locator, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Locator{}, fmt.Errorf("%w: empty", ErrInvalidLocator)
	}

	by, value, found := strings.Cut(s, "=")
	if !found {
		return CSS(s), nil
	}

	loc := Locator{By: Strategy(strings.ToLower(strings.TrimSpace(by))), Value: value}
	if err := loc.Validate(); err != nil {
		// Selectors such as a[href=x] contain '=' without a strategy.
		if !strings.ContainsAny(by, "[]#.: ") {
			return Locator{}, err
		}
		return CSS(s), nil
	}
	return loc, nil
}

// Validate checks the strategy and value.
func (l Locator) Validate() error {
	switch l.By {
	case ByID, ByName, ByCSS, ByXPath:
	default:
		return fmt.Errorf("%w: unknown strategy %q", ErrInvalidLocator, l.By)
	}
	if l.Value == "" {
		return fmt.Errorf("%w: empty %s", ErrInvalidLocator, l.By)
	}
	return nil
}

func (l Locator) String() string {
	return string(l.By) + "=" + l.Value
}

// CSSSelector returns an equivalent CSS selector. XPath locators have none.
func (l Locator) CSSSelector() (string, bool) {
	switch l.By {
	case ByID:
		return attrSelector("id", l.Value), true
	case ByName:
		return attrSelector("name", l.Value), true
	case ByCSS:
		return l.Value, true
	default:
		return "", false
	}
}

// W3C returns the WebDriver "using" strategy and value for l.
func (l Locator) W3C() (using, value string) {
	if l.By == ByXPath {
		return "xpath", l.Value
	}
	sel, _ := l.CSSSelector()
	return "css selector", sel
}

// jsLookup returns a JavaScript expression evaluating to the first matching
// element or null.
func (l Locator) jsLookup() string {
	q, _ := json.Marshal(l.Value)
	if l.By == ByXPath {
		return fmt.Sprintf("document.evaluate(%s, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue", q)
	}
	sel, _ := l.CSSSelector()
	qs, _ := json.Marshal(sel)
	return fmt.Sprintf("document.querySelector(%s)", qs)
}

// probeScript returns an expression describing the matched element as an
// elementInfo object.
func (l Locator) probeScript() string {
	return `(() => {
	const el = ` + l.jsLookup() + `;
	if (!el) return {found: false};
	const rect = el.getBoundingClientRect();
	const style = window.getComputedStyle(el);
	const visible = rect.width > 0 && rect.height > 0 &&
		style.visibility !== 'hidden' && style.display !== 'none';
	return {
		found: true,
		tag: el.tagName.toLowerCase(),
		text: (el.innerText || el.value || '').trim(),
		visible: visible,
		enabled: !el.disabled,
	};
})()`
}

// elementInfo is the JSON shape produced by probeScript.
type elementInfo struct {
	Found   bool   `json:"found"`
	Tag     string `json:"tag"`
	Text    string `json:"text"`
	Visible bool   `json:"visible"`
	Enabled bool   `json:"enabled"`
}

var cssAttrEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func attrSelector(attr, value string) string {
	return fmt.Sprintf(`[%s="%s"]`, attr, cssAttrEscaper.Replace(value))
}
