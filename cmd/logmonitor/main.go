// Command logmonitor is the container's PID 1: it launches the configured
// workload, tails the sources named in its settings file onto stdout, and
// exits once the workload exits or a termination signal arrives.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"logmonitor/internal/config"
	"logmonitor/internal/core"
	"logmonitor/internal/metrics"
	"logmonitor/internal/outputlane"
	"logmonitor/internal/supervisor"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configFile  string
		metricsAddr string
		workloadCmd string
	)
	flag.StringVar(&configFile, "config", "", "Path to the settings JSON file")
	flag.StringVar(&metricsAddr, "metrics-addr", ":9090", "Address the /metrics and /health endpoints listen on")
	flag.StringVar(&workloadCmd, "workload", "", "Command line of the child workload to supervise (space-separated)")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	settings, err := config.Load(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logmonitor: loading configuration: %v\n", err)
		return 1
	}

	lane := outputlane.New(os.Stdout)

	c, err := core.New(settings, lane, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logmonitor: building sources: %v\n", err)
		return 1
	}

	metricsSrv := metrics.NewServer(metricsAddr, logger)
	metricsSrv.Start()
	defer func() {
		if err := metricsSrv.Stop(5 * time.Second); err != nil {
			logger.WithError(err).Warn("metrics server did not shut down cleanly")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- c.Run(ctx) }()

	var workload *supervisor.Workload
	workloadDone := make(chan error, 1)
	if workloadCmd != "" {
		name, args := splitCommand(workloadCmd)
		workload = supervisor.New(name, args, lane, logger)
		if err := workload.Start(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "logmonitor: starting workload: %v\n", err)
			cancel()
			<-runErr
			return 1
		}
		go func() { workloadDone <- workload.Wait() }()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	select {
	case <-sigChan:
		logger.Info("shutdown signal received")
	case err := <-workloadDone:
		if err != nil {
			logger.WithError(err).Warn("workload exited with an error")
			exitCode = 1
		} else {
			logger.Info("workload exited")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	c.Shutdown(shutdownCtx)
	cancel()
	<-runErr

	return exitCode
}

// splitCommand does a minimal whitespace split of the -workload flag; the
// workload line is expected to carry no quoted arguments, matching the way
// this flag is always rendered by the container entrypoint that sets it.
func splitCommand(line string) (string, []string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}
	return fields[0], fields[1:]
}
