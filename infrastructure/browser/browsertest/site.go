// Package browsertest provides a deterministic in-memory browser.Driver.
//
// Time in the simulated browser is counted in lookups, not wall clock:
// an element that "appears after 3" is missing for the first three
// FindElement calls against it in a window and present from the fourth.
package browsertest

import "multiwindow-go/infrastructure/browser"

// Page describes the document served for a URL.
type Page struct {
	Title    string
	Elements []ElementSpec

	// LoadingPolls is how many ReadyState calls report "loading" after the
	// page is navigated to.
	LoadingPolls int

	// Hangs makes navigation to the page block until the caller's context
	// is done.
	Hangs bool

	// HangingScripts never return when executed on the page.
	HangingScripts []string
}

// ElementSpec describes one element of a Page.
type ElementSpec struct {
	Locator browser.Locator
	Text    string
	Tag     string

	Hidden   bool
	Disabled bool

	// AppearsAfter is the number of failed lookups before the element exists.
	AppearsAfter int

	// EnabledAfter is the number of lookups during which the element is
	// present but disabled.
	EnabledAfter int

	// Opens is a URL loaded into a new, unfocused window on click.
	Opens string
}

// Site maps URLs to pages. Unknown URLs load an empty page titled by URL.
type Site map[string]*Page

func (s Site) page(url string) *Page {
	if p, ok := s[url]; ok && p != nil {
		return p
	}
	return &Page{Title: url}
}

func (p *Page) element(loc browser.Locator) (*ElementSpec, bool) {
	for i := range p.Elements {
		if p.Elements[i].Locator == loc {
			return &p.Elements[i], true
		}
	}
	return nil, false
}

// Practice URLs served by PracticeSite.
const (
	SwitchWindowsURL = "http://toolsqa.com/automation-practice-switch-windows/"
	PopupURL         = "http://toolsqa.com/sample"
	GoogleURL        = "http://google.com"
	ToolsQAURL       = "http://toolsqa.com"
	AdminHomeURL     = "http://localhost/ac"
	AdminLoginURL    = "http://localhost/ac/wp-admin"
	HangingURL       = "http://localhost/hang"

	// HangingScript never completes on ToolsQAURL.
	HangingScript = "return new Promise(() => {});"
)

// PracticeSite returns the pages the built-in scenarios visit. On the
// switch-windows page button1 opens a new window on every click; on the
// admin login page the submit button renders late and starts disabled.
func PracticeSite() Site {
	return Site{
		SwitchWindowsURL: {
			Title: "Automation Practice Switch Windows",
			Elements: []ElementSpec{
				{Locator: browser.ID("button1"), Tag: "button", Text: "New Browser Window", Opens: PopupURL},
				{Locator: browser.ID("content"), Tag: "div", Text: "Switch windows"},
			},
		},
		PopupURL: {
			Title: "sample",
			Elements: []ElementSpec{
				{Locator: browser.ID("sampleHeading"), Tag: "h1", Text: "This is a sample page"},
			},
		},
		GoogleURL:  {Title: "Google"},
		ToolsQAURL: {Title: "Tools QA", HangingScripts: []string{HangingScript}},
		HangingURL: {Title: "Never loads", Hangs: true},
		AdminHomeURL: {
			Title:        "Admin",
			LoadingPolls: 2,
			Elements: []ElementSpec{
				{Locator: browser.ID("myDynamicElement"), Tag: "div", Text: "loaded", AppearsAfter: 3},
			},
		},
		AdminLoginURL: {
			Title: "Log In",
			Elements: []ElementSpec{
				{Locator: browser.ID("user_login"), Tag: "input"},
				{Locator: browser.ID("user_pass"), Tag: "input"},
				{Locator: browser.Name("wp-submit"), Tag: "input", Text: "Log In", AppearsAfter: 2, EnabledAfter: 2},
			},
		},
	}
}
