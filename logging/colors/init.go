package colors

// disabled forces Colorize into a pass-through on every platform when the user opts out of colored output.
var disabled bool

// DisableColor turns Colorize into a pass-through, for plain console output.
func DisableColor() {
	disabled = true
}

// init will ensure that ANSI coloring is enabled on Windows and Unix systems. Note that ANSI coloring is enabled by
// default on Unix systems and Windows needs specific kernel calls for enablement
func init() {
	EnableColor()
}
