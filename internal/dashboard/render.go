package dashboard

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/tmater/pulse/internal/proto"
	"github.com/tmater/pulse/internal/result"
)

var statusText = map[result.Status]string{
	result.Neutral: "not run",
	result.OK:      "ok",
	result.Fail:    "fail",
}

// Render writes in as plain text: the overall line, one alert line per
// failure and one block per panel. Fields that carry an error are marked
// with "!".
func Render(w io.Writer, in result.Interpretation) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	overall := "Overall: " + strings.ToUpper(statusText[in.Overall])
	if in.Query != "" {
		overall += "  " + in.Query
	}
	fmt.Fprintln(tw, overall)
	for _, msg := range in.Errors {
		fmt.Fprintf(tw, "! %s\n", msg)
	}

	for _, kind := range proto.Kinds {
		p := in.Panel(kind)
		fmt.Fprintf(tw, "\n%s [%s]\n", kind.Label(), statusText[p.State()])
		if p.State() == result.Neutral {
			fmt.Fprintln(tw, "  Not run")
			continue
		}
		for _, f := range p.Fields() {
			mark := ""
			if f.IsError {
				mark = "! "
			}
			fmt.Fprintf(tw, "  %s\t%s%s\n", f.Key, mark, f.Text)
		}
	}
	return tw.Flush()
}
