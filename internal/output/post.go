package output

import (
	"fmt"
	"io"

	"github.com/dshills/copyedit/internal/document"
	"github.com/dshills/copyedit/internal/pipeline"
)

// PostWriter outputs the edited posts. With more than one file each post
// is preceded by a "==> source <==" header.
type PostWriter struct{}

func (p *PostWriter) Write(w io.Writer, report *pipeline.Report) error {
	ew := &errWriter{w: w}
	multi := len(report.Files) > 1
	for i, f := range report.Files {
		if f.Result == nil {
			continue
		}
		data, err := document.Format(f.Result.Document)
		if err != nil {
			return fmt.Errorf("formatting %s: %w", f.Source, err)
		}
		if multi {
			if i > 0 {
				ew.println("")
			}
			ew.printf("==> %s <==\n", f.Source)
		}
		ew.printf("%s", data)
	}
	return ew.err
}
