package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrStructural is returned when a graph breaks one of the model invariants.
	ErrStructural = errors.New("structural error")
	// ErrUnsupportedShape is returned when the native strategy is forced on a graph it cannot express.
	ErrUnsupportedShape = errors.New("unsupported shape")
	// ErrDialect marks a recovered dialect anomaly. It is reported as a warning.
	ErrDialect = errors.New("dialect warning")
	// ErrParse is returned when a document cannot be read at all.
	ErrParse = errors.New("parse error")
	// ErrNotFound is returned by stores when an automation id is unknown.
	ErrNotFound = errors.New("automation not found")
)

// Structural error kinds.
const (
	KindMissingID       = "missing_id"
	KindDuplicateID     = "duplicate_id"
	KindDanglingEdge    = "dangling_edge"
	KindMissingTrigger  = "missing_trigger"
	KindTriggerIncoming = "trigger_incoming"
	KindBadHandle       = "bad_handle"
	KindBadPayload      = "bad_payload"
)

// StructuralError describes one broken graph invariant.
type StructuralError struct {
	Kind   string
	NodeID string
	EdgeID string
	Msg    string
}

func (e *StructuralError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind)
	if e.NodeID != "" {
		fmt.Fprintf(&b, " (node %s)", e.NodeID)
	}
	if e.EdgeID != "" {
		fmt.Fprintf(&b, " (edge %s)", e.EdgeID)
	}
	b.WriteString(": ")
	b.WriteString(e.Msg)
	return b.String()
}

func (e *StructuralError) Unwrap() error { return ErrStructural }

// UnsupportedShapeError is returned when a strategy cannot represent a graph.
type UnsupportedShapeError struct {
	Strategy Strategy
	Shape    string
	Reasons  []string
}

func (e *UnsupportedShapeError) Error() string {
	msg := fmt.Sprintf("%s strategy cannot express a %s graph", e.Strategy, e.Shape)
	if len(e.Reasons) > 0 {
		msg += ": " + strings.Join(e.Reasons, "; ")
	}
	return msg
}

func (e *UnsupportedShapeError) Unwrap() error { return ErrUnsupportedShape }

// DialectWarning records a recovered anomaly found while reading or writing a document.
// Path locates the offending entry, e.g. "actions[2].data".
type DialectWarning struct {
	Path string
	Msg  string
}

func (e *DialectWarning) Error() string {
	if e.Path == "" {
		return e.Msg
	}
	return e.Path + ": " + e.Msg
}

func (e *DialectWarning) Unwrap() error { return ErrDialect }

// Warnf builds a DialectWarning.
func Warnf(path, format string, args ...any) *DialectWarning {
	return &DialectWarning{Path: path, Msg: fmt.Sprintf(format, args...)}
}

// ParseError is returned when a document is not a readable automation.
type ParseError struct {
	Line int
	Msg  string
	Err  error
}

func (e *ParseError) Error() string {
	msg := e.Msg
	if e.Line > 0 {
		msg = fmt.Sprintf("line %d: %s", e.Line, msg)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrParse, e.Err}
	}
	return []error{ErrParse}
}

// AggregateError collects several errors found in one pass.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := fmt.Sprintf("%d validation errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		msg += fmt.Sprintf("  %d. %s\n", i+1, err.Error())
	}
	return msg
}

func (e *AggregateError) Unwrap() []error { return e.Errors }

// ValidationErrors returns all validation errors if err is an AggregateError.
// Otherwise returns nil.
func ValidationErrors(err error) []error {
	var aggr *AggregateError
	if errors.As(err, &aggr) {
		return aggr.Errors
	}
	return nil
}
