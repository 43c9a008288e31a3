package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dpotapov/colorpages"
)

func (c *CLI) newRoutesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "routes [PATH...]",
		Short: "Print the route table",
		Long:  `Print the route table. With PATH arguments, print the route and parameters each path resolves to instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			router, err := colorpages.NewRouter(colorpages.DefaultRoutes...)
			if err != nil {
				return err
			}

			if len(args) == 0 {
				c.printRoutes(router.Routes())
				return nil
			}

			for _, p := range args {
				route, params, ok := router.Match(p)
				if !ok {
					fmt.Fprintf(c.stdout, "%s  %s\n", clrAccent.Sprint(p), clrWarning.Sprint("no route (header only)"))
					continue
				}
				fmt.Fprintf(c.stdout, "%s  %s %s %s\n",
					clrAccent.Sprint(p),
					route.Pattern,
					clrDim.Sprint("→"),
					route.Component+formatParams(params))
			}
			return nil
		},
	}
}

func (c *CLI) printRoutes(routes []colorpages.Route) {
	width := len("PATTERN")
	for _, r := range routes {
		width = max(width, len(r.Pattern))
	}

	fmt.Fprintf(c.stdout, "%s  %s\n", clrDim.Sprintf("%-*s", width, "PATTERN"), clrDim.Sprint("COMPONENT"))
	for _, r := range routes {
		fmt.Fprintf(c.stdout, "%s  %s\n", clrAccent.Sprintf("%-*s", width, r.Pattern), r.Component)
	}
}

// formatParams renders params as (k=v, ...) in key order.
func formatParams(params colorpages.Params) string {
	if len(params) == 0 {
		return ""
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%q", k, params[k])
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
