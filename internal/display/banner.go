package display

import (
	"fmt"
	"io"

	"github.com/backmassage/retempo/internal/term"
)

// PrintBanner prints the ASCII art banner to w; uses Magenta if colors are enabled.
func PrintBanner(w io.Writer) {
	fmt.Fprint(w, term.Magenta)
	fmt.Fprint(w, `           _
 _ __ ___| |_ ___ _ __ ___  _ __   ___
| '__/ _ \ __/ _ \ '_ `+"`"+` _ \| '_ \ / _ \
| | |  __/ ||  __/ | | | | | |_) | (_) |
|_|  \___|\__\___|_| |_| |_| .__/ \___/
                           |_|
`)
	fmt.Fprint(w, term.NC)
}
