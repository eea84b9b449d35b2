package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/aretw0/fable/internal/cli"
	"github.com/aretw0/fable/internal/presentation/tui"
	"github.com/aretw0/fable/pkg/observability"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play a story interactively",
	Long: `Starts a game at the initial state and reads commands from stdin until
the final state is reached. Use --resume to continue a saved slot.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		sessionID, _ := cmd.Flags().GetString("session")
		resume, _ := cmd.Flags().GetString("resume")
		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
		return runPlay(cmd.Context(), user, sessionID, resume, metricsAddr)
	},
}

func init() {
	rootCmd.AddCommand(playCmd)
	playCmd.Flags().StringP("user", "u", "player", "Player name")
	playCmd.Flags().StringP("session", "s", "", "Session id (default: random)")
	playCmd.Flags().StringP("resume", "r", "", "Save slot to resume")
	playCmd.Flags().String("metrics-addr", "", "Expose Prometheus metrics on this address, e.g. :9090")

	rootCmd.RunE = playCmd.RunE
	rootCmd.Flags().AddFlagSet(playCmd.Flags())
}

func runPlay(parent context.Context, user, sessionID, resume, metricsAddr string) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx := cli.NewSignalContext(parent)
	defer ctx.Cancel()

	logger := cli.NewLogger(cfg.Level(), false)
	hooks := observability.LogHooks(logger)

	if metricsAddr != "" {
		reg := prometheus.NewRegistry()
		metrics, err := observability.NewMetrics(reg)
		if err != nil {
			return err
		}
		hooks = observability.Chain(hooks, metrics.Hooks())

		srv := serveMetrics(metricsAddr, reg)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	engine, closer, err := cli.NewEngine(ctx, cfg, logger, hooks)
	if err != nil {
		return err
	}
	defer closer.Close()

	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	opts := cli.PlayOptions{
		SessionID:   sessionID,
		UserName:    user,
		Resume:      resume,
		FinalKey:    cfg.FinalState,
		Interactive: term.IsTerminal(int(os.Stdin.Fd())),
		In:          cli.NewInterruptibleReader(os.Stdin, ctx.Done()),
		Out:         os.Stdout,
	}
	if opts.Interactive {
		tui.PrintBanner(os.Stdout)
		width := 80
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
			width = w
		}
		opts.Render = tui.NewRenderer(width)
	}

	err = cli.Play(ctx, engine, opts)
	if sig := ctx.Signal(); sig != nil {
		fmt.Fprintf(os.Stderr, "\nInterrupted by %v\n", sig)
	}
	return cli.HandleExecutionError(err)
}

func serveMetrics(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "metrics server error: %v\n", err)
		}
	}()
	return srv
}
