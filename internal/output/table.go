package output

import (
	"bytes"
	"fmt"
	"text/tabwriter"

	"github.com/jbweber/herd/internal/cluster"
)

// TableFormatter formats cluster state as human-readable tables.
type TableFormatter struct {
	// NoHeaders omits the header row.
	NoHeaders bool
}

// FormatMembers formats roster members as a NAME/STATE table.
func (f *TableFormatter) FormatMembers(members []cluster.MemberStatus) (string, error) {
	if len(members) == 0 {
		return "No members found\n", nil
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	if !f.NoHeaders {
		_, _ = fmt.Fprintln(w, "NAME\tSTATE")
	}
	for _, m := range members {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", m.Name, m.State)
	}

	_ = w.Flush()
	return buf.String(), nil
}

// FormatReport formats one row per member with its final phase.
func (f *TableFormatter) FormatReport(report *cluster.Report) (string, error) {
	if len(report.Results) == 0 {
		return "No members processed\n", nil
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	if !f.NoHeaders {
		_, _ = fmt.Fprintln(w, "NAME\tPHASE\tREASON\tMESSAGE")
	}
	for _, r := range View(report).Results {
		message := r.Message
		if r.Error != "" {
			message = r.Error
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Name, dash(r.Phase), dash(r.Reason), dash(message))
	}

	_ = w.Flush()
	return buf.String(), nil
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
