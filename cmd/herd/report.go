package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jbweber/herd/internal/cluster"
	"github.com/jbweber/herd/internal/output"
	"github.com/jbweber/herd/internal/status"
	"github.com/jbweber/herd/internal/ui"
)

// printReport writes report to w, one status line per member or in the
// format selected with -o, and returns errMembersFailed if any member failed.
// A member cut short by cancellation keeps context.Canceled in the chain.
func printReport(w io.Writer, report *cluster.Report) error {
	if outputFormat != "" {
		formatter, err := output.NewFormatter(output.Options{
			Format:    output.Format(outputFormat),
			NoHeaders: noHeaders,
		})
		if err != nil {
			return err
		}
		result, err := formatter.FormatReport(report)
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}
		fmt.Fprint(w, result)
	} else {
		for _, r := range report.Results {
			fmt.Fprintln(w, resultLine(r))
		}
	}

	if unconverged := report.Unconverged(); len(unconverged) > 0 {
		fmt.Fprintln(w, ui.WarnMsg("%d member(s) left running: %v", len(unconverged), unconverged))
	}
	failed := report.Failed()
	if len(failed) == 0 {
		return nil
	}
	errs := []error{fmt.Errorf("%w: %s %v", errMembersFailed, report.Operation, failed)}
	for _, r := range report.Results {
		if errors.Is(r.Err, context.Canceled) {
			errs = append(errs, r.Err)
			break
		}
	}
	return errors.Join(errs...)
}

func resultLine(r cluster.MemberResult) string {
	name := ui.Bold(r.ID)
	switch {
	case r.Err != nil:
		return ui.ErrorMsg("%s %v", name, r.Err)
	case r.Unconverged:
		return ui.WarnMsg("%s %s %s", name, r.Message, ui.Muted("("+r.Reason+")"))
	case r.Phase == status.PhaseAlreadyInState:
		return ui.InfoMsg("%s %s", name, ui.Muted(r.Message))
	default:
		return ui.SuccessMsg("%s %s", name, r.Message)
	}
}

// finish prints report, if there is one, and returns the first error.
func finish(report *cluster.Report, err error) error {
	if report != nil {
		if perr := printReport(os.Stdout, report); perr != nil && err == nil {
			err = perr
		}
	}
	return err
}

// single wraps one member result in a report.
func single(operation string, r cluster.MemberResult) *cluster.Report {
	return &cluster.Report{Operation: operation, Results: []cluster.MemberResult{r}}
}
