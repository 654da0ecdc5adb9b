package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/conneroisu/switchboard/internal/renderer"
	"github.com/conneroisu/switchboard/internal/router"
	"github.com/conneroisu/switchboard/internal/version"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var routesMatch string

var routesCmd = &cobra.Command{
	Use:     "routes",
	Aliases: []string{"r"},
	Short:   "List the route table",
	Long: `List every route the server answers, in match order.

With --match, resolve a request target the way the server would and show
which route handles it.

Examples:
  switchboard routes
  switchboard routes --match "/about?ref=nav"
  switchboard routes --match /missing`,
	Args: cobra.NoArgs,
	RunE: runRoutes,
}

func init() {
	rootCmd.AddCommand(routesCmd)
	routesCmd.Flags().StringVarP(&routesMatch, "match", "m", "", "request target to resolve against the table")
}

func runRoutes(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	r, err := renderer.New(ctx)
	if err != nil {
		return fmt.Errorf("rendering pages: %w", err)
	}
	table := router.NewTable(r, renderer.RuntimeInfo{
		Version:  version.RuntimeVersion(),
		Platform: version.Platform(),
	})

	if routesMatch != "" {
		return printMatch(cmd.OutOrStdout(), table, routesMatch)
	}
	return printRoutes(cmd.OutOrStdout(), table)
}

func printRoutes(w io.Writer, table *router.Table) error {
	title := cases.Title(language.English)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, color.New(color.Bold).Sprint("PATH\tNAME"))
	for _, route := range table.Routes() {
		fmt.Fprintf(tw, "%s\t%s\n", color.CyanString(route.Path), displayName(title, route.Name))
	}
	fmt.Fprintf(tw, "%s\t%s\n", color.YellowString("*"), displayName(title, router.NameNotFound))
	return tw.Flush()
}

func printMatch(w io.Writer, table *router.Table, target string) error {
	path, err := router.ParseTarget(target)
	if err != nil {
		return fmt.Errorf("parsing %q: %w", target, err)
	}

	route, ok := table.Match(path)
	if !ok {
		fmt.Fprintf(w, "%s -> %s\n", path, color.YellowString(router.NameNotFound))
		return nil
	}
	fmt.Fprintf(w, "%s -> %s\n", path, color.GreenString(route.Name))
	return nil
}

// displayName turns "api-data" into "Api Data".
func displayName(c cases.Caser, name string) string {
	return c.String(strings.ReplaceAll(name, "-", " "))
}
