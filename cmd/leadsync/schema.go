package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/leadsync/kit"
	"github.com/hazyhaar/leadsync/pagetype"
	"github.com/hazyhaar/leadsync/schema"
)

var (
	schemaOut     string
	schemaActor   string
	schemaVersion string
	schemaLimit   int
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Manage extraction schemas",
}

func schemaKeyArgs(args []string) (pagetype.Platform, pagetype.PageType, error) {
	p, t := pagetype.Platform(args[0]), pagetype.PageType(args[1])
	if !p.Valid() {
		return "", "", fmt.Errorf("unknown platform %q", args[0])
	}
	if !t.Valid() {
		return "", "", fmt.Errorf("unknown page type %q", args[1])
	}
	return p, t, nil
}

var schemaListCmd = &cobra.Command{
	Use:   "list [platform]...",
	Short: "Print every active schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := openRegistry()
		if err != nil {
			return err
		}
		defer reg.Close()
		var platforms []pagetype.Platform
		for _, a := range args {
			platforms = append(platforms, pagetype.Platform(a))
		}
		m, err := reg.SchemaMap(cmd.Context(), platforms...)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), m)
	},
}

var schemaExportCmd = &cobra.Command{
	Use:   "export <platform> <page_type>",
	Short: "Export the active schema as a portable document",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, t, err := schemaKeyArgs(args)
		if err != nil {
			return err
		}
		reg, err := openRegistry()
		if err != nil {
			return err
		}
		defer reg.Close()
		doc, err := reg.Export(cmd.Context(), p, t)
		if err != nil {
			return err
		}
		if schemaOut == "" {
			return printJSON(cmd.OutOrStdout(), doc)
		}
		f, err := os.Create(schemaOut)
		if err != nil {
			return err
		}
		if err := printJSON(f, doc); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	},
}

var schemaImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a schema document, replacing the active version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(args[0])
		if err != nil {
			return err
		}
		var doc schema.Document
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parse %s: %w", args[0], err)
		}
		reg, err := openRegistry()
		if err != nil {
			return err
		}
		defer reg.Close()

		ctx := cmd.Context()
		if schemaActor != "" {
			ctx = kit.WithUserID(ctx, schemaActor)
		}
		res, err := reg.Import(ctx, &doc)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

var schemaShowCmd = &cobra.Command{
	Use:   "show <platform> <page_type>",
	Short: "Print the elements of a schema, active ones unless --version is set",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, t, err := schemaKeyArgs(args)
		if err != nil {
			return err
		}
		reg, err := openRegistry()
		if err != nil {
			return err
		}
		defer reg.Close()

		var els []*schema.Element
		if schemaVersion != "" {
			els, err = reg.VersionElements(cmd.Context(), p, t, schemaVersion)
		} else {
			els, err = reg.ForPlatform(cmd.Context(), p, t)
		}
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), els)
	},
}

var schemaElementCmd = &cobra.Command{
	Use:   "element <id>",
	Short: "Print one schema element",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := openRegistry()
		if err != nil {
			return err
		}
		defer reg.Close()
		e, err := reg.GetElement(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if e == nil {
			return fmt.Errorf("element %s not found", args[0])
		}
		return printJSON(cmd.OutOrStdout(), e)
	},
}

var schemaHistoryCmd = &cobra.Command{
	Use:   "history <platform> <page_type>",
	Short: "Print the change log of a schema",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, t, err := schemaKeyArgs(args)
		if err != nil {
			return err
		}
		reg, err := openRegistry()
		if err != nil {
			return err
		}
		defer reg.Close()
		recs, err := reg.History(cmd.Context(), schema.HistoryFilter{
			Platform: string(p),
			PageType: string(t),
			Version:  schemaVersion,
			Limit:    schemaLimit,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), recs)
	},
}

func init() {
	schemaExportCmd.Flags().StringVarP(&schemaOut, "output", "o", "", "write to file instead of stdout")
	schemaImportCmd.Flags().StringVar(&schemaActor, "actor", "", "name recorded in the history")
	schemaShowCmd.Flags().StringVar(&schemaVersion, "version", "", "elements stored under this version, active or not")
	schemaHistoryCmd.Flags().StringVar(&schemaVersion, "version", "", "only records of this version")
	schemaHistoryCmd.Flags().IntVar(&schemaLimit, "limit", 0, "max records (0 = all)")

	schemaCmd.AddCommand(schemaListCmd, schemaShowCmd, schemaElementCmd, schemaExportCmd, schemaImportCmd, schemaHistoryCmd)
	rootCmd.AddCommand(schemaCmd)
}
