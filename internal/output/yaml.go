package output

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/jbweber/herd/internal/cluster"
)

// YAMLFormatter formats cluster state as YAML.
type YAMLFormatter struct{}

// FormatMembers formats members as a YAML sequence.
func (f *YAMLFormatter) FormatMembers(members []cluster.MemberStatus) (string, error) {
	if len(members) == 0 {
		return "[]\n", nil
	}

	data, err := yaml.Marshal(members)
	if err != nil {
		return "", fmt.Errorf("failed to marshal members to YAML: %w", err)
	}
	return string(data), nil
}

// FormatReport formats report as a YAML document.
func (f *YAMLFormatter) FormatReport(report *cluster.Report) (string, error) {
	data, err := yaml.Marshal(View(report))
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s report to YAML: %w", report.Operation, err)
	}
	return string(data), nil
}
