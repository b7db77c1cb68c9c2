/*
 * This file is part of the KubeVirt project
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 * Copyright The KubeVirt Authors.
 *
 */

package listen

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"kubevirt.io/vkdebug/pkg/config"
	"kubevirt.io/vkdebug/pkg/log"
	metrics "kubevirt.io/vkdebug/pkg/monitoring/metrics/messenger"
	"kubevirt.io/vkdebug/pkg/vulkan/debug"
	"kubevirt.io/vkdebug/pkg/vulkan/vk"
)

const COMMAND_LISTEN = "listen"

var loadLibrary = vk.Load

type Command struct {
	cfg        *config.Config
	configFile string
	duration   time.Duration
	verbosity  *int
}

// NewListenCommand returns the "listen" command. verbosity points to the
// root command's -v value.
func NewListenCommand(verbosity *int) *cobra.Command {
	c := &Command{cfg: config.Default(), verbosity: verbosity}
	cmd := &cobra.Command{
		Use:     COMMAND_LISTEN,
		Short:   "Create a Vulkan instance and print the debug messages its layers report.",
		Example: usage(),
		Args:    cobra.NoArgs,
		RunE:    c.RunE,
	}

	c.cfg.AddFlags(cmd.Flags())
	cmd.Flags().StringVar(&c.configFile, "config", "", "YAML file with the listen configuration, flags override it")
	cmd.Flags().DurationVar(&c.duration, "duration", 0, "Stop listening after this long, runs until interrupted when 0")
	return cmd
}

func usage() string {
	usage := "  # Print validation errors and warnings until interrupted:\n"
	usage += "  vkdebug listen --types=general,validation\n\n"
	usage += "  # Print everything for ten seconds and expose metrics:\n"
	usage += "  vkdebug listen --severity=all --types=all --duration=10s --metrics-listen=:9090\n\n"
	usage += "  # Print at most 20 messages per second:\n"
	usage += "  vkdebug listen --types=all --rate-limit=20"
	return usage
}

func (c *Command) resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	if c.configFile == "" {
		return c.cfg, c.cfg.Validate()
	}
	return config.Load(c.configFile, cmd.Flags())
}

func (c *Command) RunE(cmd *cobra.Command, _ []string) error {
	cfg, err := c.resolveConfig(cmd)
	if err != nil {
		return err
	}
	severity, _ := cfg.MessageSeverity()
	types, _ := cfg.MessageType()

	library, err := loadLibrary(cfg.LoaderPaths...)
	if err != nil {
		return err
	}
	defer library.Close()

	instance, err := library.CreateInstance(cfg.InstanceCreateInfo())
	if err != nil {
		return err
	}
	defer instance.Destroy()

	printer := NewPrinter(cmd.OutOrStdout(), cfg.Output, *c.verbosity)
	printer.SetRateLimit(cfg.RateLimit)
	callback, err := debug.New(instance, severity, types, printer.Handle)
	if err != nil {
		return err
	}
	defer callback.Close()
	defer func() {
		if dropped := printer.Dropped(); dropped > 0 {
			log.Log.Warningf("dropped %d messages over the rate limit of %v per second", dropped, cfg.RateLimit)
		}
	}()
	log.Log.Infof("listening for %s messages of type %s", severity, types)

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if c.duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.duration)
		defer cancel()
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.MetricsListen != "" {
		g.Go(func() error {
			return serveMetrics(gctx, cfg.MetricsListen)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func serveMetrics(ctx context.Context, address string) error {
	registry := prometheus.NewRegistry()
	if err := metrics.SetupMetrics(registry); err != nil {
		return err
	}
	registry.MustRegister(prometheus.NewGoCollector())

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: address, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Log.Reason(err).Warning("metrics server did not shut down cleanly")
		}
	}()

	log.Log.Infof("serving metrics on %s", address)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
