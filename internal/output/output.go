package output

import (
	"fmt"
	"io"
	"os"

	"github.com/dshills/copyedit/internal/pipeline"
)

// Writer writes a report in a specific format.
type Writer interface {
	Write(w io.Writer, report *pipeline.Report) error
}

// Options tune writers that support them.
type Options struct {
	// Color enables ANSI styling in text output.
	Color bool
}

// GetWriter returns a writer for the specified format.
func GetWriter(format string, opts Options) (Writer, error) {
	switch format {
	case "", "text":
		return &TextWriter{Color: opts.Color}, nil
	case "json":
		return &JSONWriter{}, nil
	case "markdown", "md":
		return &MarkdownWriter{}, nil
	case "sarif":
		return &SARIFWriter{}, nil
	case "post":
		return &PostWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// WriteReport writes the report to outPath, or stdout when outPath is empty.
func WriteReport(report *pipeline.Report, format, outPath string, opts Options) error {
	writer, err := GetWriter(format, opts)
	if err != nil {
		return err
	}

	var w io.Writer
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		w = f
	} else {
		w = os.Stdout
	}

	return writer.Write(w, report)
}
