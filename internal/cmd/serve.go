package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/glucoalert/alertcore/internal/api"
	apiv2 "github.com/glucoalert/alertcore/internal/api/v2"
	"github.com/glucoalert/alertcore/internal/logger"
	"github.com/glucoalert/alertcore/internal/mqtt"
	"github.com/glucoalert/alertcore/internal/observability/metrics"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the alert settings API",
	Long: `Serve the v2 JSON API over the configured store. When mqtt.enabled is set,
every change is also mirrored to retained MQTT topics.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveListen, "listen", "l", "", "Override http.listen")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.NewAlertingMetrics(reg)
	if err != nil {
		return err
	}
	m.SetLogger(log)

	a, err := openApp(ctx, m)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := m.Track(ctx, a.svc.Schedule, a.svc.Bus); err != nil {
		return err
	}

	httpSettings := settings.HTTP
	if serveListen != "" {
		httpSettings.Listen = serveListen
	}
	srv := api.NewServer(httpSettings, a.svc, apiv2.Options{
		Unit:     settings.DisplayUnit(),
		Gatherer: reg,
		Log:      log,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(gctx)
	})

	if settings.MQTT.Enabled {
		client, err := mqtt.NewClient(settings.MQTT, log)
		if err != nil {
			return err
		}
		pub := mqtt.NewPublisher(client, a.svc, settings.MQTT.Topic, log)

		g.Go(func() error {
			if err := client.Connect(gctx); err != nil {
				return err
			}
			defer client.Disconnect()

			pub.Subscribe(a.svc.Bus)
			if err := pub.PublishAll(gctx); err != nil {
				log.Warn("initial mqtt snapshot failed", logger.Error(err))
			}
			<-gctx.Done()
			return nil
		})
	}

	log.Info("alertctl serving",
		logger.String("listen", httpSettings.Listen),
		logger.Bool("mqtt", settings.MQTT.Enabled),
		logger.String("unit", string(settings.DisplayUnit())))
	return g.Wait()
}
