package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/cafe"
	"github.com/aretw0/cafe/internal/presentation/tui"
	"github.com/aretw0/cafe/pkg/domain"
	"golang.org/x/term"
)

// ErrRejected is returned when a transpile or import produced errors.
var ErrRejected = errors.New("rejected")

// ReadInput reads path, or stdin when path is empty or "-".
func ReadInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

// WriteOutput writes data to path, or to stdout when path is empty or "-".
func WriteOutput(path string, stdout io.Writer, data []byte) error {
	if path == "" || path == "-" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// PrintReport writes a markdown report, styled with glamour on a terminal.
func PrintReport(w io.Writer, markdown string) {
	if !IsTerminal(w) {
		fmt.Fprint(w, markdown)
		return
	}
	out, err := tui.NewRenderer()(markdown)
	if err != nil {
		out = markdown
	}
	fmt.Fprint(w, out)
}

// ReadGraph parses editor JSON from path (or stdin).
func ReadGraph(path string, stdin io.Reader) (*domain.Graph, error) {
	data, err := ReadInput(path, stdin)
	if err != nil {
		return nil, err
	}
	return domain.ParseGraphJSON(data)
}

// TranspileFile reads a graph from in and writes the document to out.
// The result is returned even when it was rejected; err is then ErrRejected.
func TranspileFile(ctx context.Context, t *cafe.Transpiler, in, out string, stdin io.Reader, stdout io.Writer, opts ...cafe.TranspileOption) (*cafe.TranspileResult, error) {
	g, err := ReadGraph(in, stdin)
	if err != nil {
		return nil, err
	}
	res := t.Transpile(ctx, g, opts...)
	if !res.Success {
		return res, ErrRejected
	}
	if err := WriteOutput(out, stdout, []byte(res.YAML)); err != nil {
		return res, err
	}
	return res, nil
}

// ImportFile reads a document from in and writes the editor graph JSON to out.
func ImportFile(ctx context.Context, t *cafe.Transpiler, in, out string, stdin io.Reader, stdout io.Writer) (*cafe.ImportResult, error) {
	text, err := ReadInput(in, stdin)
	if err != nil {
		return nil, err
	}
	res := t.FromYAML(ctx, text)
	if !res.Success {
		return res, ErrRejected
	}
	data, err := json.MarshalIndent(res.Graph, "", "  ")
	if err != nil {
		return res, fmt.Errorf("encoding graph: %w", err)
	}
	return res, WriteOutput(out, stdout, append(data, '\n'))
}
