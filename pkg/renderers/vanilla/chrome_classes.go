package vanilla

// ChromeClass is a semantic CSS class on the page chrome.
type ChromeClass string

const (
	ClassPage    ChromeClass = "bo-page"
	ClassToasts  ChromeClass = "bo-toasts"
	ClassForm    ChromeClass = "bo-form"
	ClassHeader  ChromeClass = "bo-header"
	ClassErrors  ChromeClass = "bo-errors"
	ClassGrid    ChromeClass = "bo-grid"
	ClassField   ChromeClass = "bo-field"
	ClassActions ChromeClass = "bo-actions"
)

// gridColumns is the width of the layout grid.
const gridColumns = 12

func chromeClasses() map[string]string {
	return map[string]string{
		"page":    string(ClassPage),
		"toasts":  string(ClassToasts),
		"form":    string(ClassForm),
		"header":  string(ClassHeader),
		"errors":  string(ClassErrors),
		"grid":    string(ClassGrid),
		"actions": string(ClassActions),
	}
}
