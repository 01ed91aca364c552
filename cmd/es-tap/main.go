// es-tap reads endpoint security messages from a pinned ring buffer and
// turns them into OpenTelemetry spans, debug lines and Sigma detections.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"

	"github.com/mrzor/endpoint-sec/internal/attributes"
	"github.com/mrzor/endpoint-sec/internal/bpfloader"
	"github.com/mrzor/endpoint-sec/internal/config"
	"github.com/mrzor/endpoint-sec/internal/dedup"
	"github.com/mrzor/endpoint-sec/internal/detect"
	"github.com/mrzor/endpoint-sec/internal/event"
	"github.com/mrzor/endpoint-sec/internal/eventprocessor"
	"github.com/mrzor/endpoint-sec/internal/eventstream"
	"github.com/mrzor/endpoint-sec/internal/otel"
	"github.com/mrzor/endpoint-sec/internal/output"
	"github.com/mrzor/endpoint-sec/internal/sessions"
	"github.com/mrzor/endpoint-sec/internal/timesync"
)

// Version information injected by GoReleaser at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	var (
		configPath string
		flags      config.Flags
		dedupSize  int
	)

	rootCmd := &cobra.Command{
		Use:   "es-tap",
		Short: "endpoint security event tap",
		Long:  "Reads endpoint security messages from a pinned ring buffer and exports them as spans, debug lines and Sigma detections.",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "attach to the ring buffer and process events until interrupted",
		Long: `Attaches to the ring buffer pinned by the event producer and runs every
message through kind selection, filter, dedup and the configured outputs.

Examples:
  es-tap run --ringbuf /sys/fs/bpf/es_events
  es-tap run --kinds setuid,setgid --output both
  es-tap run --filter 'process.euid == 0' --attr 'exe=process.executable.path'
  es-tap run --rules-dir /etc/es-tap/rules`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("dedup-size") {
				flags.DedupSize = &dedupSize
			}
			cfg, err := loadConfig(configPath, flags)
			if err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return run(ctx, cfg)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "YAML configuration file")
	runCmd.Flags().StringVar(&flags.RingBuf, "ringbuf", "", "bpffs path of the pinned ring buffer (env: ES_TAP_RINGBUF)")
	runCmd.Flags().StringSliceVar(&flags.Kinds, "kinds", nil, "event kinds to process, comma separated (env: ES_TAP_KINDS)")
	runCmd.Flags().StringVar(&flags.Filter, "filter", "", "expr boolean expression selecting events (env: ES_TAP_FILTER)")
	runCmd.Flags().StringVar(&flags.TraceID, "trace-id", "", "expr expression computing the trace id (env: ES_TAP_TRACE_ID)")
	runCmd.Flags().StringArrayVar(&flags.Attributes, "attr", nil, "custom span attributes, name=expr;name2=expr2 (env: ES_TAP_ATTRIBUTES)")
	runCmd.Flags().IntVar(&dedupSize, "dedup-size", 0, "suppress identical events from the same process within this many distinct events, 0 disables (env: ES_TAP_DEDUP_SIZE)")
	runCmd.Flags().StringVar(&flags.RulesDir, "rules-dir", "", "directory of Sigma rules (env: ES_TAP_RULES_DIR)")
	runCmd.Flags().StringVar(&flags.Output, "output", "", "stdout, otel or both (env: ES_TAP_OUTPUT)")

	var kindsVerbose bool
	kindsCmd := &cobra.Command{
		Use:   "kinds",
		Short: "list the event kinds this build understands",
		Run: func(cmd *cobra.Command, args []string) {
			printKinds(cmd.OutOrStdout(), kindsVerbose)
		},
	}
	kindsCmd.Flags().BoolVarP(&kindsVerbose, "verbose", "v", false, "include fields and classification")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "print es-tap version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "es-tap %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}

	rootCmd.AddCommand(runCmd, kindsCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(path string, flags config.Flags) (*config.Config, error) {
	envCfg, err := config.ParseEnvConfig()
	if err != nil {
		return nil, err
	}
	var file *config.FileConfig
	if path != "" {
		if file, err = config.LoadFile(path); err != nil {
			return nil, err
		}
	}
	return config.Resolve(envCfg, file, flags)
}

func printKinds(w io.Writer, verbose bool) {
	for _, k := range event.Kinds() {
		entry, _ := event.Lookup(k)
		if !verbose {
			fmt.Fprintln(w, entry.Name)
			continue
		}
		fmt.Fprintf(w, "%-18s %-22s %-22s %s\n", entry.Name, entry.Type, entry.Class, strings.Join(entry.Fields, ", "))
	}
}

// setupOTEL initializes the OTEL provider and returns a tracer and cleanup function.
func setupOTEL() (trace.Tracer, func(), error) {
	otelCfg, err := config.ParseOTELConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse OTEL config: %w", err)
	}

	tp, err := otel.InitProvider(otelCfg, fmt.Sprintf("%s (%s)", version, commit))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize OTEL provider: %w", err)
	}

	cleanup := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otel.ShutdownProvider(shutdownCtx, tp); err != nil {
			log.Printf("shutting down OTEL provider: %v", err)
		}
	}
	return tp.Tracer("es-tap"), cleanup, nil
}

// setupSinks builds the configured outputs. The returned cleanup stops
// anything the sinks started.
func setupSinks(ctx context.Context, cfg *config.Config, mgr *sessions.Manager) ([]eventprocessor.Sink, func(), error) {
	var (
		sinks    []eventprocessor.Sink
		cleanups []func()
	)
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	if cfg.WantsStdout() {
		sinks = append(sinks, output.NewPrinter(os.Stdout))
	}

	if cfg.WantsOTEL() {
		tracer, cleanupOTEL, err := setupOTEL()
		if err != nil {
			return nil, cleanup, err
		}
		cleanups = append(cleanups, cleanupOTEL)

		clock, err := timesync.NewConverter()
		if err != nil {
			return nil, cleanup, fmt.Errorf("failed to create time converter: %w", err)
		}
		custom, err := attributes.NewEvaluator(cfg.CustomAttributes)
		if err != nil {
			return nil, cleanup, err
		}
		traceIDs, err := attributes.NewTraceIDEvaluator(cfg.TraceID)
		if err != nil {
			return nil, cleanup, err
		}
		sinks = append(sinks, output.NewOTELFormatter(tracer, clock, custom, traceIDs, mgr))
	}

	if cfg.RulesDir != "" {
		detector, err := detect.New(cfg.RulesDir)
		if err != nil {
			if detector == nil || detector.Len() == 0 {
				return nil, cleanup, fmt.Errorf("loading rules: %w", err)
			}
			log.Printf("loading rules: %v", err)
		}
		reloader, err := detect.NewReloader(detector)
		if err != nil {
			return nil, cleanup, err
		}
		reloadCtx, stop := context.WithCancel(ctx)
		cleanups = append(cleanups, stop)
		go func() {
			if err := reloader.Run(reloadCtx); err != nil {
				log.Printf("rules reloader: %v", err)
			}
		}()
		sinks = append(sinks, detector)
	}

	return sinks, cleanup, nil
}

func run(ctx context.Context, cfg *config.Config) error {
	log.Printf("starting es-tap %s (commit: %s, built: %s)", version, commit, date)

	loader, err := bpfloader.Open(cfg.RingBufPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := loader.Close(); err != nil {
			log.Printf("closing ring buffer: %v", err)
		}
	}()
	log.Printf("attached to %s (%d bytes)", cfg.RingBufPath, loader.Size())

	filter, err := attributes.NewFilter(cfg.Filter)
	if err != nil {
		return err
	}
	var window *dedup.Window
	if cfg.DedupSize > 0 {
		if window, err = dedup.New(cfg.DedupSize); err != nil {
			return err
		}
	}
	mgr := sessions.NewManager()

	sinks, cleanupSinks, err := setupSinks(ctx, cfg, mgr)
	defer cleanupSinks()
	if err != nil {
		return err
	}

	processor := eventprocessor.NewProcessor(eventprocessor.Options{
		Kinds:    cfg.Kinds,
		Filter:   filter,
		Dedup:    window,
		Sessions: mgr,
	}, sinks...)

	stream := eventstream.New(loader.Reader(), processor)
	if err := stream.Start(ctx); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		log.Println("received signal, stopping")
	case <-stream.Done():
		log.Println("ring buffer closed")
	}
	if err := stream.Stop(); err != nil {
		log.Printf("stopping stream: %v", err)
	}
	// Closing the reader unblocks a pending read.
	if err := loader.Close(); err != nil {
		log.Printf("closing ring buffer: %v", err)
	}
	<-stream.Done()

	st := stream.Stats()
	log.Printf("stream: delivered=%d malformed=%d handler_errors=%d", st.Delivered, st.Malformed, st.HandlerErrors)
	log.Printf("processor: %s", processor.Counts().Summary())
	if window != nil {
		log.Printf("dedup: duplicates=%d collisions=%d", window.Duplicates(), window.Collisions())
	}
	if locked := mgr.Locked(); len(locked) > 0 {
		log.Printf("sessions: %d locked at exit", len(locked))
	}
	return nil
}
