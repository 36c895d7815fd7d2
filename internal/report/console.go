package report

import (
	"fmt"
	"io"

	"github.com/wonny/indexrep/internal/contracts"
)

// WriteWeights prints the "Symbol, Weight" table, one line per subset slot
func WriteWeights(w io.Writer, table contracts.WeightsTable) error {
	for _, line := range table.Lines() {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
