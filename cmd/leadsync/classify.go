package main

import (
	"github.com/spf13/cobra"

	"github.com/hazyhaar/leadsync/pagetype"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <url>...",
	Short: "Classify URLs into platform and page type",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := make([]pagetype.ClassifyResult, 0, len(args))
		for _, u := range args {
			out = append(out, pagetype.Describe(u))
		}
		if len(out) == 1 {
			return printJSON(cmd.OutOrStdout(), out[0])
		}
		return printJSON(cmd.OutOrStdout(), out)
	},
}

func init() {
	rootCmd.AddCommand(classifyCmd)
}
