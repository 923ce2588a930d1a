package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/adalundhe/strand/core/fault"
)

const FaultsDefaultLimit = 20

var (
	faultsMatch string
	faultsKind  string
	faultsSince time.Duration
	faultsLimit int
	faultsStack bool
	faultsJSON  bool
)

var faultsCmd = &cobra.Command{
	Use:   "faults",
	Short: "List faults recorded in the fault journal",
	Long: `List task faults persisted in the fault journal, newest first.

Examples:
  strand faults
  strand faults --match 'stress-*' --kind panic
  strand faults --since 1h --stack
  strand faults --json | jq '.[].task_name'`,
	Args: cobra.NoArgs,
	RunE: runFaults,
}

func init() {
	rootCmd.AddCommand(faultsCmd)

	faultsCmd.Flags().StringVarP(&faultsMatch, "match", "m", "", "Glob matched against task names")
	faultsCmd.Flags().StringVar(&faultsKind, "kind", "", "Only show faults of this kind (panic, goexit)")
	faultsCmd.Flags().DurationVar(&faultsSince, "since", 0, "Only show faults newer than this")
	faultsCmd.Flags().IntVarP(&faultsLimit, "limit", "l", FaultsDefaultLimit, "Maximum number of faults (0 for all)")
	faultsCmd.Flags().BoolVar(&faultsStack, "stack", false, "Include stack traces")
	faultsCmd.Flags().BoolVar(&faultsJSON, "json", false, "Output as JSON")
}

func runFaults(cmd *cobra.Command, args []string) error {
	filter, err := buildFaultFilter(time.Now())
	if err != nil {
		return err
	}

	env, err := loadEnvironment(cmd, nil)
	if err != nil {
		return err
	}

	path := env.manager.JournalPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintf(cmd.OutOrStdout(), "no fault journal at %s\n", path)
		return nil
	}

	j, err := fault.OpenJournal(path, env.logger)
	if err != nil {
		return err
	}
	defer j.Close()

	records, err := j.List(cmd.Context(), filter)
	if err != nil {
		return err
	}
	return writeFaults(cmd.OutOrStdout(), records)
}

func buildFaultFilter(now time.Time) (fault.Filter, error) {
	filter := fault.Filter{Name: faultsMatch, Limit: faultsLimit}
	switch kind := fault.Kind(strings.ToLower(faultsKind)); kind {
	case "", fault.KindPanic, fault.KindGoexit:
		filter.Kind = kind
	default:
		return filter, fmt.Errorf("unknown fault kind %q", faultsKind)
	}
	if faultsSince > 0 {
		filter.Since = now.Add(-faultsSince)
	}
	if faultsLimit < 0 {
		return filter, fmt.Errorf("--limit must be >= 0, got %d", faultsLimit)
	}
	return filter, nil
}

type faultJSON struct {
	ID       int64      `json:"id"`
	TaskID   string     `json:"task_id"`
	TaskName string     `json:"task_name"`
	Kind     fault.Kind `json:"kind"`
	Value    string     `json:"value"`
	ThreadID int        `json:"thread_id"`
	At       time.Time  `json:"at"`
	Stack    string     `json:"stack,omitempty"`
}

func writeFaults(out io.Writer, records []fault.Record) error {
	if faultsJSON {
		items := make([]faultJSON, 0, len(records))
		for _, r := range records {
			item := faultJSON{
				ID:       r.ID,
				TaskID:   r.TaskID,
				TaskName: r.TaskName,
				Kind:     r.Kind,
				Value:    r.Value,
				ThreadID: r.ThreadID,
				At:       r.At,
			}
			if faultsStack {
				item.Stack = r.Stack
			}
			items = append(items, item)
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}

	if len(records) == 0 {
		fmt.Fprintln(out, "no faults")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "AT\tKIND\tTASK\tTHREAD\tVALUE")
	for _, r := range records {
		name := r.TaskName
		if name == "" {
			name = r.TaskID
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			r.At.Local().Format(time.DateTime), r.Kind, name, r.ThreadID, r.Value)
		if faultsStack {
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintln(out, r.Stack)
		}
	}
	return w.Flush()
}
