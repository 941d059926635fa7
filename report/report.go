// Package report aggregates repository outcomes and renders them.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/input-output-hk/catalyst-forge-libs/reposync/domain"
)

// Exit statuses of the reposync binary.
const (
	ExitClean  = 0
	ExitFailed = 1

	// ExitUsage is reserved for usage and configuration errors outside the core.
	ExitUsage = 2
)

// Format selects an output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat parses "text", "json" or "yaml".
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json or yaml)", s)
	}
}

// Aggregate builds a RunOutcome from outcomes, preserving their order.
func Aggregate(outcomes []domain.RepoOutcome) domain.RunOutcome {
	run := domain.RunOutcome{
		Outcomes: append([]domain.RepoOutcome(nil), outcomes...),
		Status:   domain.RunClean,
	}
	if run.Outcomes == nil {
		run.Outcomes = []domain.RepoOutcome{}
	}

	for _, o := range outcomes {
		switch o.Status {
		case domain.StatusSucceeded:
			run.Summary.Succeeded++
		case domain.StatusNoOp:
			run.Summary.NoOp++
		default:
			run.Summary.Failed++
		}
	}
	if run.Summary.Failed > 0 {
		run.Status = domain.RunFailed
	}
	return run
}

// ExitStatus maps a run to the process exit status: ExitClean or ExitFailed.
func ExitStatus(run domain.RunOutcome) int {
	if run.Status == domain.RunFailed {
		return ExitFailed
	}
	return ExitClean
}

// Write renders run to w in format.
func Write(w io.Writer, run domain.RunOutcome, format Format) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, run)
	case FormatYAML:
		return WriteYAML(w, run)
	default:
		return WriteText(w, run)
	}
}

// WriteText renders a summary line followed by one line per repository.
func WriteText(w io.Writer, run domain.RunOutcome) error {
	s := run.Summary
	if _, err := fmt.Fprintf(w, "Processed %d repos: %d success, %d no-op, %d failed\n",
		len(run.Outcomes), s.Succeeded, s.NoOp, s.Failed); err != nil {
		return err
	}

	for _, o := range run.Outcomes {
		msg := o.Message
		if o.Failed() {
			msg = fmt.Sprintf("%s: %s", o.Kind, o.Detail)
		}
		if _, err := fmt.Fprintf(w, "[%s] %s :: %s\n", label(o.Status), o.Target.Path, msg); err != nil {
			return err
		}
	}
	return nil
}

// WriteJSON renders run as indented JSON.
func WriteJSON(w io.Writer, run domain.RunOutcome) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(run)
}

// WriteYAML renders run as YAML.
func WriteYAML(w io.Writer, run domain.RunOutcome) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(run); err != nil {
		return err
	}
	return enc.Close()
}

// WriteApply renders a single apply outcome as text.
func WriteApply(w io.Writer, out domain.ApplyOutcome) error {
	var err error
	switch out.Status {
	case domain.StatusSucceeded:
		_, err = fmt.Fprintf(w, "Applied side-channel changes to %s using %s\n", out.Target.Path, out.Method)
	case domain.StatusNoOp:
		_, err = fmt.Fprintf(w, "Side-channel changes already integrated in %s\n", out.Target.Path)
	default:
		_, err = fmt.Fprintf(w, "Failed to apply side-channel changes to %s: %s: %s\n", out.Target.Path, out.Kind, out.Detail)
	}
	return err
}

// WriteApplyStructured renders an apply outcome as JSON or YAML.
func WriteApplyStructured(w io.Writer, out domain.ApplyOutcome, format Format) error {
	if format == FormatYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func label(s domain.RepoStatus) string {
	switch s {
	case domain.StatusSucceeded:
		return "OK"
	case domain.StatusNoOp:
		return "NOOP"
	default:
		return "FAIL"
	}
}
