package telemetry

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// PrintConsoleTable renders rows as an aligned plain-text table to w,
// the Go analogue of the original's print_console_telemetry_table.
// Nothing in the pack reaches for a third-party table-rendering library;
// text/tabwriter is the stdlib tool the pack itself uses for this exact
// job (see aldrin-isaac-newtron's cmd/newtron table output).
func PrintConsoleTable(w io.Writer, rows []Row) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tNAME\tCONFIG\tINPUTS\tOUTPUTS\tDURATION(ms)\tDELTA(ms)\tGOAL(ms)")
	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%.3f\t%.3f\t%.3f\n",
			row.TypeName, row.Name, row.Config, row.Inputs, row.Outputs,
			row.TickDurationMs, row.TickDeltaMs, row.GoalIntervalMs)
	}
	return tw.Flush()
}
