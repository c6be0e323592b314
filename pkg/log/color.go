package log

const (
	redCode    = "\x1b[31m"
	greenCode  = "\x1b[32m"
	yellowCode = "\x1b[33m"
	cyanCode   = "\x1b[36m"
	boldCode   = "\x1b[1m"

	// ResetCode ends a run of styled text.
	ResetCode = "\x1b[0m"

	arrow      = "=>"
	smallArrow = "->"
)

// UseColor determines if the package will emit ANSI colors. It defaults
// to true; nothing in this package changes it.
var UseColor = true

func stylize(startCode, in string) string {
	if UseColor {
		return startCode + in + ResetCode
	}

	return in
}

// Red stylizes text in red.
func Red(in string) string { return stylize(redCode, in) }

// Green stylizes text in green.
func Green(in string) string { return stylize(greenCode, in) }

func yellow(in string) string { return stylize(yellowCode, in) }

// Cyan stylizes text in cyan.
func Cyan(in string) string { return stylize(cyanCode, in) }

// Bold stylizes text in bold.
func Bold(in string) string { return stylize(boldCode, in) }
