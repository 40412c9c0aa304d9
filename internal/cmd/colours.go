package cmd

const (
	green      = "\033[32m"
	blue       = "\033[34m"
	cyan       = "\033[36m"
	yellow     = "\033[33m"
	magenta    = "\033[35m"
	resetColor = "\033[0m"
)

var methodColors = map[string]string{
	"GET":    green,
	"POST":   blue,
	"PUT":    cyan,
	"DELETE": yellow,
	"PATCH":  magenta,
}

// colourRoute paints the method of a "METHOD /path" pattern.
func colourRoute(pattern string, colour bool) string {
	if !colour {
		return pattern
	}
	for i := 0; i < len(pattern); i++ {
		if pattern[i] != ' ' {
			continue
		}
		if c, ok := methodColors[pattern[:i]]; ok {
			return c + pattern[:i] + resetColor + pattern[i:]
		}
		break
	}
	return pattern
}
