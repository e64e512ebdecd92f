package output

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
)

// TableRenderer is implemented by values that print as a table.
type TableRenderer interface {
	Headers() []string
	Rows() [][]string
}

// Captioned tables print a summary line under their rows.
type Captioned interface {
	Caption() string
}

// emptyTable is printed instead of a header-only table.
const emptyTable = "(none)"

// PrintTable writes t as a borderless, left-aligned table followed by its
// caption, if any.
func PrintTable(w io.Writer, t TableRenderer) error {
	rows := t.Rows()
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, emptyTable)
		return err
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader(t.Headers())
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorders(tablewriter.Border{})
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)
	table.AppendBulk(rows)
	table.Render()

	if c, ok := t.(Captioned); ok && c.Caption() != "" {
		if _, err := fmt.Fprintf(w, "\n%s\n", c.Caption()); err != nil {
			return err
		}
	}
	return nil
}
