package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var draftsCmd = &cobra.Command{
	Use:   "drafts",
	Short: "Manage saved workflow drafts",
}

var draftsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved drafts, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDraftStore()
		if err != nil {
			return err
		}
		defer store.Close()

		metas, err := store.List()
		if err != nil {
			return err
		}
		if len(metas) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No saved drafts")
			return nil
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tPROJECT\tMODE\tUPDATED")
		for _, m := range metas {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				m.ID, m.ProjectName, m.Mode, m.UpdatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var draftsDeleteCmd = &cobra.Command{
	Use:   "delete [draft-id]",
	Short: "Delete a saved draft",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDraftStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Delete(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Draft %s deleted\n", args[0])
		return nil
	},
}

func init() {
	draftsCmd.AddCommand(draftsListCmd)
	draftsCmd.AddCommand(draftsDeleteCmd)
}
