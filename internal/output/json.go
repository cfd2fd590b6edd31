package output

import (
	"encoding/json"
	"fmt"

	"github.com/jbweber/herd/internal/cluster"
)

// JSONFormatter formats cluster state as JSON.
type JSONFormatter struct{}

// FormatMembers formats members as a JSON array.
func (f *JSONFormatter) FormatMembers(members []cluster.MemberStatus) (string, error) {
	if len(members) == 0 {
		return "[]\n", nil
	}

	data, err := json.MarshalIndent(members, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal members to JSON: %w", err)
	}
	return string(data) + "\n", nil
}

// FormatReport formats report as a JSON object.
func (f *JSONFormatter) FormatReport(report *cluster.Report) (string, error) {
	data, err := json.MarshalIndent(View(report), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s report to JSON: %w", report.Operation, err)
	}
	return string(data) + "\n", nil
}
