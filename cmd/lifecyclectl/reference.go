package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/garyjia/coselection/internal/domain/permission"
	"github.com/garyjia/coselection/internal/domain/workflow"
)

var reasonsKind string

var reasonsCmd = &cobra.Command{
	Use:   "reasons",
	Short: "Print the reason codes accepted per entity kind and target state",
	RunE: func(cmd *cobra.Command, args []string) error {
		table := workflow.ReasonTable()
		if reasonsKind != "" {
			byState, ok := table[workflow.Kind(reasonsKind)]
			if !ok {
				return fmt.Errorf("unknown kind %q", reasonsKind)
			}
			table = map[workflow.Kind]map[workflow.State][]workflow.ReasonOption{workflow.Kind(reasonsKind): byState}
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), table)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "KIND\tTARGET\tCODE\tLABEL")
		for _, kind := range workflow.Kinds() {
			byState, ok := table[kind]
			if !ok {
				continue
			}
			states := make([]string, 0, len(byState))
			for s := range byState {
				states = append(states, string(s))
			}
			sort.Strings(states)
			for _, s := range states {
				for _, opt := range byState[workflow.State(s)] {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", kind, s, opt.Code, opt.Label)
				}
			}
		}
		return w.Flush()
	},
}

var permissionsCmd = &cobra.Command{
	Use:   "permissions",
	Short: "Print the actions each role may perform",
	RunE: func(cmd *cobra.Command, args []string) error {
		table := permission.Table()
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), table)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ROLE\tACTION")
		for _, role := range permission.Roles() {
			for _, action := range table[role] {
				fmt.Fprintf(w, "%s\t%s\n", role, action)
			}
		}
		return w.Flush()
	},
}

func init() {
	reasonsCmd.Flags().StringVar(&reasonsKind, "kind", "", "only print one kind (lead, transaction, payout, dispute)")
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
