// Command execsim drives the transaction executor through the
// end-to-end scenarios of spec.md §8 against an in-memory backend, and
// optionally serves the shared Prometheus registry for inspection while it
// runs. It exists to give the executor, facade, and precompiled registry a
// runnable surface outside their unit tests, the way cmd/evm exercises the
// teacher's own EVM in isolation.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	"github.com/morebtcg/bcos-executor-sub001/core/config"
	"github.com/morebtcg/bcos-executor-sub001/log"
	"github.com/morebtcg/bcos-executor-sub001/metrics"
)

var (
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "path to a chain configuration TOML file (genesis + chain params); defaults are used if omitted",
	}
	metricsAddrFlag = &cli.StringFlag{
		Name:  "metrics.addr",
		Usage: "address to serve the Prometheus registry on (e.g. 127.0.0.1:6060); unset disables the metrics server",
	}
)

func main() {
	app := &cli.App{
		Name:  "execsim",
		Usage: "run the transaction executor's end-to-end scenarios",
		Flags: []cli.Flag{configFlag, metricsAddrFlag},
		Commands: []*cli.Command{
			runCommand,
			listCommand,
		},
		Action: func(c *cli.Context) error {
			return runScenarios(c, scenarioNames())
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Crit("execsim: fatal", "err", err)
	}
}

var runCommand = &cli.Command{
	Name:      "run",
	Usage:     "run one or more scenarios by name (default: all)",
	ArgsUsage: "[scenario...]",
	Flags:     []cli.Flag{configFlag, metricsAddrFlag},
	Action: func(c *cli.Context) error {
		names := c.Args().Slice()
		if len(names) == 0 {
			names = scenarioNames()
		}
		return runScenarios(c, names)
	},
}

var listCommand = &cli.Command{
	Name:  "list",
	Usage: "list the available scenario names",
	Action: func(c *cli.Context) error {
		for _, s := range scenarios {
			fmt.Fprintln(out, s.name)
		}
		return nil
	},
}

func scenarioNames() []string {
	names := make([]string, len(scenarios))
	for i, s := range scenarios {
		names[i] = s.name
	}
	return names
}

func runScenarios(c *cli.Context, names []string) error {
	if path := c.String(configFlag.Name); path != "" {
		if _, err := config.Load(path); err != nil {
			return fmt.Errorf("execsim: loading config: %w", err)
		}
		printInfo("loaded chain configuration from %s", path)
	}

	if addr := c.String(metricsAddrFlag.Name); addr != "" {
		srv := serveMetrics(addr)
		defer srv.Close()
	}

	byName := make(map[string]scenario, len(scenarios))
	for _, s := range scenarios {
		byName[s.name] = s
	}

	ctx := context.Background()
	failures := 0
	for _, name := range names {
		s, ok := byName[name]
		if !ok {
			printFail("unknown scenario %q", name)
			failures++
			continue
		}
		printHeader("scenario: %s", s.name)
		if err := s.run(ctx); err != nil {
			printFail("%s: %v", s.name, err)
			failures++
			continue
		}
		printOK("%s", s.name)
	}

	if failures > 0 {
		return fmt.Errorf("%d scenario(s) failed", failures)
	}
	return nil
}

// serveMetrics starts promhttp.Handler against metrics.Registry on addr in
// the background; the caller is responsible for closing the returned
// server once done, typically via defer.
func serveMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("execsim: metrics server stopped", "err", err)
		}
	}()
	printInfo("serving metrics on http://%s/metrics", addr)
	return srv
}
