package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/gops/agent"
	"github.com/spf13/cobra"
	"github.com/viant/vecrag/service"
)

func main() {
	startGops()
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "vecrag:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "vecrag",
		Short:         "Threshold-aware vector search and retrieval-augmented answers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", os.Getenv("VECRAG_CONFIG"), "config yaml (optional)")
	root.PersistentFlags().String("namespace", "", "store namespace (defaults to store.namespace)")
	root.PersistentFlags().Bool("json", false, "output in JSON format")
	root.AddCommand(newSearchCommand(), newAskCommand(), newIngestCommand())
	return root
}

// openService loads config and builds the service for a command.
func openService(cmd *cobra.Command) (*service.Service, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := service.LoadConfig(cmd.Context(), path)
	if err != nil {
		return nil, err
	}
	return service.New(cmd.Context(), cfg)
}

// retrievalFlags registers -k and threshold flags.
func retrievalFlags(cmd *cobra.Command) {
	cmd.Flags().Int("k", 0, "number of results (defaults to retrieval.k)")
	cmd.Flags().Float64("threshold", 0, "score threshold; direction follows the store metric")
	cmd.Flags().Bool("no-threshold", false, "ignore any configured score threshold")
}

func thresholdFlag(cmd *cobra.Command) *float64 {
	if !cmd.Flags().Changed("threshold") {
		return nil
	}
	v, _ := cmd.Flags().GetFloat64("threshold")
	return &v
}

func startGops() {
	if err := agent.Listen(agent.Options{ShutdownCleanup: true}); err != nil {
		fmt.Fprintln(os.Stderr, "gops:", err)
	}
}
