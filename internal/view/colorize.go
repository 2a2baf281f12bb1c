package view

import "regexp"

const (
	nullColor = "\x1b[31;1m"
	nsColor   = "\x1b[32;1m"
	hexColor  = "\x1b[33;1m"
	numColor  = "\x1b[34;1m"
	fnColor   = "\x1b[35;1m"
	userColor = "\x1b[36;1m"
	roomColor = "\x1b[33;3m"
	urlColor  = "\x1b[31;3m"
	reset     = "\x1b[0m"
)

var (
	nullRegex = regexp.MustCompile(`\(null\)`)
	nsRegex   = regexp.MustCompile(`(?P<id>\[[a-zA-Z]+\])`)
	hexRegex  = regexp.MustCompile(`(?P<hex>0x[a-fA-F0-9]+)`)
	numRegex  = regexp.MustCompile(`(?P<bfr>([^\w]|^))(?P<num>#?\d+((\.|\-|:)\d+)*)(?P<aft>[^\w])`)
	fnRegex   = regexp.MustCompile(` (?P<fn>[a-z]+[A-Z][a-zA-Z]*)(?P<aft>(:| ))`)
	userRegex = regexp.MustCompile(`(?P<user>@[\w=]+:[^\.]+(\.[a-z]+)+)`)
	roomRegex = regexp.MustCompile(`(?P<room>![a-zA-Z]+:[a-z]+(\.[a-z]+)+)`)
	urlRegex  = regexp.MustCompile(`(?P<url>(_matrix|.well-known)(/[\w%\-@:\.!]+)*)`)
)

// colorizeLine highlights the structures that recur in client logs:
// nulls, bracketed identifiers, hex and decimal numbers, camelCase
// function names, matrix user/room ids and API paths.
func colorizeLine(line string) string {
	out := numRegex.ReplaceAllString(line, "${bfr}"+numColor+"${num}"+reset+"${aft}")
	out = nsRegex.ReplaceAllString(out, nsColor+"${id}"+reset)
	out = fnRegex.ReplaceAllString(out, " "+fnColor+"${fn}"+reset+"${aft}")
	out = nullRegex.ReplaceAllString(out, nullColor+"(null)"+reset)
	out = hexRegex.ReplaceAllString(out, hexColor+"${hex}"+reset)
	out = urlRegex.ReplaceAllString(out, urlColor+"${url}"+reset)
	out = roomRegex.ReplaceAllString(out, roomColor+"${room}"+reset)
	out = userRegex.ReplaceAllString(out, userColor+"${user}"+reset)
	return out
}
