package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/dpotapov/colorpages"
)

// shutdownTimeout bounds the graceful shutdown of the listeners.
const shutdownTimeout = 10 * time.Second

func (c *CLI) newServeCmd() *cobra.Command {
	var (
		listen        string
		metricsListen string
		title         string
		noLive        bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Long:  `Run the page server and, unless disabled, a Prometheus metrics listener. Flags override the config file and the environment.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed("listen") {
				c.cfg.Listen = listen
			}
			if flags.Changed("metrics-listen") {
				c.cfg.MetricsListen = metricsListen
			}
			if flags.Changed("title") {
				c.cfg.Title = title
			}
			if flags.Changed("no-live") {
				c.cfg.Live = !noLive
			}

			if err := c.cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			return c.serve(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "page server address")
	cmd.Flags().StringVar(&metricsListen, "metrics-listen", "", `metrics server address ("" disables it)`)
	cmd.Flags().StringVar(&title, "title", "", "page title")
	cmd.Flags().BoolVar(&noLive, "no-live", false, "disable live navigation")

	return cmd
}

// namedServer is an http.Server with a label for status messages.
type namedServer struct {
	name string
	srv  *http.Server
}

func (c *CLI) serve(ctx context.Context) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	h := c.newHandler(colorpages.NewMetrics(reg))
	if err := h.Init(); err != nil {
		return err
	}

	servers := []namedServer{{
		name: "pages",
		srv: &http.Server{
			Addr:              c.cfg.Listen,
			Handler:           colorpages.LoggerMiddleware(h, c.slogger()),
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
	}}

	if c.cfg.MetricsListen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		servers = append(servers, namedServer{
			name: "metrics",
			srv: &http.Server{
				Addr:              c.cfg.MetricsListen,
				Handler:           mux,
				ReadHeaderTimeout: 10 * time.Second,
			},
		})
	}

	return c.runServers(ctx, servers)
}

// runServers serves until ctx is cancelled or one of the servers fails, then shuts all of
// them down.
func (c *CLI) runServers(ctx context.Context, servers []namedServer) error {
	lns := make([]net.Listener, 0, len(servers))
	for _, s := range servers {
		ln, err := net.Listen("tcp", s.srv.Addr)
		if err != nil {
			for _, l := range lns {
				l.Close()
			}
			return fmt.Errorf("listen %s on %s: %w", s.name, s.srv.Addr, err)
		}
		lns = append(lns, ln)
	}

	errc := make(chan error, len(servers))
	for i, s := range servers {
		go func() {
			if err := s.srv.Serve(lns[i]); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- fmt.Errorf("%s server: %w", s.name, err)
			}
		}()

		addr := lns[i].Addr().String()
		c.status("info", fmt.Sprintf("%s listening on %s", s.name, displayURL(addr)))
		c.logger.Debug("Listener started", "server", s.name, "addr", addr)
		if c.ready != nil {
			c.ready(s.name, addr)
		}
	}

	var err error
	select {
	case <-ctx.Done():
		c.status("warning", "Shutdown signal received...")
	case err = <-errc:
		c.status("error", err.Error())
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	for _, s := range servers {
		if serr := s.srv.Shutdown(shutdownCtx); serr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown %s server: %w", s.name, serr))
		}
	}

	if err == nil {
		c.status("success", "Servers stopped. Goodbye.")
	}

	return err
}

// displayURL turns a listener address into a clickable URL.
func displayURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr
}
