package manage

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation  = errors.New("manage: invalid parameters")
	ErrEnvironment = errors.New("manage: environment preparation failed")
	ErrExecution   = errors.New("manage: command failed")
)

// Failure is a terminal run error with the diagnostics an operator needs.
// It unwraps to one of ErrValidation, ErrEnvironment, or ErrExecution.
type Failure struct {
	Kind     error
	Msg      string
	Cmd      string
	Stdout   string
	Stderr   string
	ExitCode int32
	Path     string
	Err      error
}

func (f *Failure) Error() string {
	var b strings.Builder
	if f.Kind != nil {
		b.WriteString(f.Kind.Error())
		b.WriteString(": ")
	}
	b.WriteString(f.Msg)
	if f.Cmd != "" {
		fmt.Fprintf(&b, " cmd=%q", f.Cmd)
	}
	if f.Err != nil {
		fmt.Fprintf(&b, ": %v", f.Err)
	}
	return b.String()
}

func (f *Failure) Unwrap() []error {
	errs := make([]error, 0, 2)
	if f.Kind != nil {
		errs = append(errs, f.Kind)
	}
	if f.Err != nil {
		errs = append(errs, f.Err)
	}
	return errs
}

// Report is the structured failure document.
func (f *Failure) Report() FailureReport {
	return FailureReport{
		Failed:   true,
		Msg:      f.Msg,
		Cmd:      f.Cmd,
		Stdout:   f.Stdout,
		Stderr:   f.Stderr,
		ExitCode: f.ExitCode,
		Path:     f.Path,
	}
}

// FailureReport is what a failed run prints instead of a Result.
type FailureReport struct {
	Failed   bool   `json:"failed" yaml:"failed"`
	Msg      string `json:"msg" yaml:"msg"`
	Cmd      string `json:"cmd,omitempty" yaml:"cmd,omitempty"`
	Stdout   string `json:"stdout,omitempty" yaml:"stdout,omitempty"`
	Stderr   string `json:"stderr,omitempty" yaml:"stderr,omitempty"`
	ExitCode int32  `json:"rc,omitempty" yaml:"rc,omitempty"`
	Path     string `json:"path,omitempty" yaml:"path,omitempty"`
}

// AsFailure extracts a *Failure from err, wrapping foreign errors as execution failures.
func AsFailure(err error) *Failure {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return &Failure{Kind: ErrExecution, Msg: err.Error(), Err: err}
}

func validationf(format string, args ...any) *Failure {
	return &Failure{Kind: ErrValidation, Msg: fmt.Sprintf(format, args...)}
}

// outputMsg renders captured streams the way the failure report headline shows them.
func outputMsg(stdout, stderr string) string {
	var b strings.Builder
	if stdout != "" {
		b.WriteString("stdout: ")
		b.WriteString(stdout)
	}
	if stderr != "" {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("stderr: ")
		b.WriteString(stderr)
	}
	return b.String()
}
