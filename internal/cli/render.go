package cli

import (
	"bufio"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

func (c *CLI) newRenderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "render PATH",
		Short: "Render the page for PATH to stdout",
		Long:  `Render the page for PATH exactly as the server would answer a GET request. Unmatched paths render the header only; the command fails only when a component fails to render.`,
		Example: `  colorpages render /red
  colorpages render /%23ff8800 > orange.html`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h := c.newHandler(nil)
			h.DisableLive = true

			w := bufio.NewWriter(c.stdout)
			status, err := h.RenderPath(cmd.Context(), args[0], w)
			if err != nil {
				return err
			}
			if err := w.Flush(); err != nil {
				return err
			}

			c.logger.Debug("Rendered page", "path", args[0], "status", status)

			if status >= http.StatusInternalServerError {
				return fmt.Errorf("render %s: %s", args[0], http.StatusText(status))
			}
			return nil
		},
	}
}
