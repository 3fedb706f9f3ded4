package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"google.golang.org/grpc"

	"github.com/conduitbus/conduit/internal/config"
	"github.com/conduitbus/conduit/internal/inspector"
	"github.com/conduitbus/conduit/internal/luabridge"
	"github.com/conduitbus/conduit/internal/trace"
	"github.com/conduitbus/conduit/internal/version"
	"github.com/conduitbus/conduit/pkg/conduit"
)

func main() {
	fmt.Fprintln(os.Stderr, "conduitd starting...")
	configPath := flag.String("config", "", "path to config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Get())
		os.Exit(0)
	}
	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: conduitd -config <path>")
		fmt.Fprintln(os.Stderr, "  Run conduitd with the given YAML config file.")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var traceOut io.Writer = os.Stdout
	var streamSink *trace.StreamSink
	if cfg.Trace.StreamEnabled {
		streamSink = trace.NewStreamSink()
		traceOut = io.MultiWriter(os.Stdout, streamSink)
	}

	var observers []conduit.Option
	var metricsSink *trace.MetricsSink
	if cfg.Trace.MetricsEnabled {
		metricsSink = trace.NewMetricsSink(prometheus.DefaultRegisterer)
		observers = append(observers, conduit.WithInvokeObserver(metricsSink.AsInvokeObserver()))
	}

	opts := append([]conduit.Option{conduit.WithLogger(log.New(traceOut, "", 0))}, observers...)
	registrar := conduit.NewRegistrar(cfg.Registrar.Name, opts...)
	if cfg.Registrar.DebugDefault {
		registrar.SetDebug(true)
	}

	bridge := luabridge.New()
	defer bridge.Close()
	bridge.Publish(cfg.Registrar.Name, registrar)

	scripts, err := cfg.ScriptPaths()
	if err != nil {
		log.Printf("warning: loading lua script paths: %v", err)
	}
	for _, path := range scripts {
		if err := bridge.DoFile(path); err != nil {
			log.Printf("warning: running lua script %s: %v", path, err)
		}
	}

	var wait []func()

	if cfg.Inspector.Enabled {
		lis, err := net.Listen("tcp", cfg.Inspector.ListenAddr)
		if err != nil {
			log.Fatalf("inspector: listen %s: %v", cfg.Inspector.ListenAddr, err)
		}
		gs := grpc.NewServer()
		inspector.Register(gs, inspector.NewServer(registrar))
		go func() {
			log.Printf("inspector listening on %s", cfg.Inspector.ListenAddr)
			if err := gs.Serve(lis); err != nil {
				log.Printf("inspector: serve: %v", err)
			}
		}()
		wait = append(wait, gs.GracefulStop)
	}

	if cfg.Trace.MetricsEnabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: cfg.Trace.MetricsListenAddr, Handler: mux}
		go func() {
			log.Printf("metrics listening on %s", cfg.Trace.MetricsListenAddr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("metrics: serve: %v", err)
			}
		}()
		wait = append(wait, func() { _ = srv.Shutdown(context.Background()) })
	}

	if cfg.Trace.StreamEnabled && streamSink != nil {
		srv := &http.Server{Addr: cfg.Trace.StreamListenAddr, Handler: streamSink}
		go func() {
			log.Printf("trace stream listening on %s", cfg.Trace.StreamListenAddr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("trace stream: serve: %v", err)
			}
		}()
		wait = append(wait, func() { _ = srv.Shutdown(context.Background()) })
	}

	if cfg.Heartbeat.Enabled {
		heartbeat := conduit.Lookup[conduit.Void, conduit.Void](registrar, cfg.Heartbeat.Channel, "conduitd:heartbeat")
		c := cron.New()
		if _, err := c.AddFunc(cfg.Heartbeat.Schedule, func() { heartbeat.Invoke(conduit.Void{}) }); err != nil {
			log.Fatalf("heartbeat: bad schedule %q: %v", cfg.Heartbeat.Schedule, err)
		}
		c.Start()
		wait = append(wait, func() { <-c.Stop().Done() })
	}

	<-ctx.Done()
	log.Println("conduitd shutting down")
	for _, fn := range wait {
		fn()
	}
}
