package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/leadsync/browser"
	"github.com/hazyhaar/leadsync/dom"
	"github.com/hazyhaar/leadsync/selector"
)

var (
	selHTML   string
	selURL    string
	selTarget string
	selCSS    string
	selXPath  string
)

var selectorCmd = &cobra.Command{
	Use:   "selector",
	Short: "Generate and test element selectors",
}

var selectorGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a CSS selector and an XPath for the first element matching --target",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if selTarget == "" {
			return errors.New("--target is required")
		}
		doc, err := loadDocument(cmd.Context())
		if err != nil {
			return err
		}
		el, err := doc.Find(selTarget)
		if err != nil {
			return err
		}
		if el == nil {
			return fmt.Errorf("no element matches %q", selTarget)
		}
		return printJSON(cmd.OutOrStdout(), selector.New(selector.WithLogger(logger)).Generate(doc, el))
	},
}

var selectorTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Count the elements matched by --css and/or --xpath",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if selCSS == "" && selXPath == "" {
			return errors.New("--css or --xpath is required")
		}
		doc, err := loadDocument(cmd.Context())
		if err != nil {
			return err
		}
		out := map[string]selector.Match{}
		if selCSS != "" {
			out["css"] = selector.TestCSS(doc, selCSS)
		}
		if selXPath != "" {
			out["xpath"] = selector.TestXPath(doc, selXPath)
		}
		return printJSON(cmd.OutOrStdout(), out)
	},
}

// loadDocument reads --html, or renders --url in the browser.
func loadDocument(ctx context.Context) (*dom.HTML, error) {
	switch {
	case selHTML != "":
		data, err := readInput(selHTML)
		if err != nil {
			return nil, err
		}
		return dom.ParseString(string(data))
	case selURL != "":
		m, err := startBrowser(ctx)
		if err != nil {
			return nil, err
		}
		defer m.Close()
		src := browser.NewSource(m)
		defer src.Close()
		return src.Load(ctx, selURL)
	}
	return nil, errors.New("--html or --url is required")
}

func init() {
	for _, c := range []*cobra.Command{selectorGenerateCmd, selectorTestCmd} {
		c.Flags().StringVar(&selHTML, "html", "", "HTML file, - for stdin")
		c.Flags().StringVar(&selURL, "url", "", "page to render in the browser instead of --html")
	}
	selectorGenerateCmd.Flags().StringVar(&selTarget, "target", "", "CSS selector locating the element")
	selectorTestCmd.Flags().StringVar(&selCSS, "css", "", "CSS selector")
	selectorTestCmd.Flags().StringVar(&selXPath, "xpath", "", "XPath expression")

	selectorCmd.AddCommand(selectorGenerateCmd, selectorTestCmd)
	rootCmd.AddCommand(selectorCmd)
}
