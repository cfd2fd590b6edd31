// Package output provides formatters for displaying cluster members and
// operation reports in various formats (table, YAML, JSON).
package output

import (
	"fmt"

	"github.com/jbweber/herd/internal/cluster"
)

// Format represents an output format type.
type Format string

const (
	// FormatTable is a human-readable table format.
	FormatTable Format = "table"
	// FormatYAML is a YAML format.
	FormatYAML Format = "yaml"
	// FormatJSON is a JSON format for machine consumption.
	FormatJSON Format = "json"
)

// Formatter formats cluster state for output.
type Formatter interface {
	// FormatMembers formats roster members with their power state.
	FormatMembers(members []cluster.MemberStatus) (string, error)

	// FormatReport formats the per-member outcome of an operation.
	FormatReport(report *cluster.Report) (string, error)
}

// Options contains options for formatting output.
type Options struct {
	// Format specifies the output format.
	Format Format
	// NoHeaders omits headers in table format.
	NoHeaders bool
}

// NewFormatter creates a new Formatter based on the specified format.
func NewFormatter(opts Options) (Formatter, error) {
	switch opts.Format {
	case FormatTable:
		return &TableFormatter{NoHeaders: opts.NoHeaders}, nil
	case FormatYAML:
		return &YAMLFormatter{}, nil
	case FormatJSON:
		return &JSONFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s (supported: table, yaml, json)", opts.Format)
	}
}

// ValidateFormat checks if a format string is valid.
func ValidateFormat(format string) error {
	f := Format(format)
	switch f {
	case FormatTable, FormatYAML, FormatJSON:
		return nil
	default:
		return fmt.Errorf("invalid format: %s (valid formats: table, yaml, json)", format)
	}
}

// Result is the serialisable form of a cluster.MemberResult.
type Result struct {
	Name        string `json:"name" yaml:"name"`
	Phase       string `json:"phase" yaml:"phase"`
	Reason      string `json:"reason,omitempty" yaml:"reason,omitempty"`
	Message     string `json:"message,omitempty" yaml:"message,omitempty"`
	Unconverged bool   `json:"unconverged,omitempty" yaml:"unconverged,omitempty"`
	Error       string `json:"error,omitempty" yaml:"error,omitempty"`
}

// ReportView is the serialisable form of a cluster.Report.
type ReportView struct {
	Operation string   `json:"operation" yaml:"operation"`
	Results   []Result `json:"results" yaml:"results"`
}

// View converts report for YAML or JSON encoding.
func View(report *cluster.Report) ReportView {
	v := ReportView{Operation: report.Operation, Results: make([]Result, 0, len(report.Results))}
	for _, r := range report.Results {
		res := Result{
			Name:        r.ID,
			Phase:       string(r.Phase),
			Reason:      r.Reason,
			Message:     r.Message,
			Unconverged: r.Unconverged,
		}
		if r.Err != nil {
			res.Error = r.Err.Error()
		}
		v.Results = append(v.Results, res)
	}
	return v
}
