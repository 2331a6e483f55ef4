package output

import (
	"encoding/json"
	"fmt"
	"io"
)

// JSONPrinter prints JSON, to stdout unless Out is set.
type JSONPrinter struct {
	Out io.Writer
}

// Print renders JSON output.
func (p JSONPrinter) Print(v any) error {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(writerOr(p.Out), string(payload))
	return err
}
