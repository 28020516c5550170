package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/zktaccess/zktadmin/internal/client/logfilter"
	"github.com/zktaccess/zktadmin/internal/client/models"
)

const logTimeLayout = "2006-01-02 15:04:05"

// logArgs is the parsed form of the logs command line.
type logArgs struct {
	query   logfilter.Query
	reset   bool
	refresh bool
}

// parseLogArgs applies args on top of the current query. Flags that are not
// given keep their current value; an empty value clears that filter.
func parseLogArgs(args []string, current logfilter.Query) (logArgs, error) {
	fs := flag.NewFlagSet("logs", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	user := fs.String("u", current.Username, "username substring")
	from := fs.String("from", current.Start.String(), "first day (YYYY-MM-DD)")
	to := fs.String("to", current.End.String(), "last day (YYYY-MM-DD)")
	reset := fs.Bool("reset", false, "clear all filters")
	refresh := fs.Bool("refresh", false, "reload the log from the server")

	if err := fs.Parse(args); err != nil {
		return logArgs{}, err
	}
	if fs.NArg() > 0 {
		return logArgs{}, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}

	out := logArgs{reset: *reset, refresh: *refresh}
	if *reset {
		return out, nil
	}

	start, err := logfilter.ParseDate(*from)
	if err != nil {
		return logArgs{}, err
	}
	end, err := logfilter.ParseDate(*to)
	if err != nil {
		return logArgs{}, err
	}
	out.query = logfilter.Query{Username: strings.TrimSpace(*user), Start: start, End: end}
	return out, nil
}

// Logs shows the audit log through the current filter. The log is fetched
// when nothing is loaded yet, when no flags are given, or with -refresh;
// filter changes alone reuse the loaded list.
func (a *App) Logs(ctx context.Context, args []string) error {
	parsed, err := parseLogArgs(args, a.query)
	if err != nil {
		return err
	}

	if a.entries == nil || len(args) == 0 || parsed.refresh {
		entries, err := a.logs.List(ctx)
		if err != nil {
			return err
		}
		if entries == nil {
			entries = []models.LogEntry{}
		}
		a.entries = entries
	}
	a.query = parsed.query

	shown := a.logs.Filter(a.entries, a.query)
	a.printLogs(shown)
	return nil
}

func (a *App) printLogs(shown []models.LogEntry) {
	if !a.query.IsZero() {
		a.printf("Filter: %s\n", describeQuery(a.query))
	}
	if len(shown) > 0 {
		tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTIME\tUSER\tTYPE\tMESSAGE")
		for _, e := range shown {
			ts := "-"
			switch {
			case e.Time.Valid:
				ts = e.Time.Time.In(a.loc).Format(logTimeLayout)
			case e.Time.Raw != "":
				ts = e.Time.Raw
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", e.ID, ts, e.Username, e.Type, e.Message)
		}
		_ = tw.Flush()
	} else {
		a.println("No log entries match.")
	}
	a.printf("%d / %d shown\n", len(shown), len(a.entries))
}

func describeQuery(q logfilter.Query) string {
	var parts []string
	if u := strings.TrimSpace(q.Username); u != "" {
		parts = append(parts, fmt.Sprintf("user contains %q", u))
	}
	if !q.Start.IsZero() {
		parts = append(parts, "from "+q.Start.String())
	}
	if !q.End.IsZero() {
		parts = append(parts, "to "+q.End.String())
	}
	return strings.Join(parts, ", ")
}

// LogUsers lists the usernames present in the loaded log for use with -u.
func (a *App) LogUsers(ctx context.Context) error {
	if a.entries == nil {
		entries, err := a.logs.List(ctx)
		if err != nil {
			return err
		}
		a.entries = entries
	}
	names := logfilter.Usernames(a.entries)
	if len(names) == 0 {
		a.println("No users in the log.")
		return nil
	}
	a.println(strings.Join(names, "\n"))
	return nil
}

// ClearLogs deletes the whole audit log after confirmation.
func (a *App) ClearLogs(ctx context.Context) error {
	if err := a.logs.Clear(ctx, a.confirm); err != nil {
		return err
	}
	a.entries = []models.LogEntry{}
	a.println("Logs cleared.")
	return nil
}
