package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/viant/vecrag/schema"
	"github.com/viant/vecrag/service"
	"github.com/viant/vecrag/vectordb/meta"
)

func newSearchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Return the nearest records for a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openService(cmd)
			if err != nil {
				return err
			}
			defer svc.Close()
			k, _ := cmd.Flags().GetInt("k")
			noThreshold, _ := cmd.Flags().GetBool("no-threshold")
			namespace, _ := cmd.Flags().GetString("namespace")
			docs, err := svc.Search(cmd.Context(), service.SearchRequest{
				Query:          strings.Join(args, " "),
				K:              k,
				ScoreThreshold: thresholdFlag(cmd),
				NoThreshold:    noThreshold,
				Namespace:      namespace,
			})
			if err != nil {
				return err
			}
			return printDocuments(cmd, docs)
		},
	}
	retrievalFlags(cmd)
	return cmd
}

func newAskCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question from retrieved context",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openService(cmd)
			if err != nil {
				return err
			}
			defer svc.Close()
			k, _ := cmd.Flags().GetInt("k")
			noThreshold, _ := cmd.Flags().GetBool("no-threshold")
			namespace, _ := cmd.Flags().GetString("namespace")
			answer, err := svc.Ask(cmd.Context(), service.AskRequest{
				Question:       strings.Join(args, " "),
				K:              k,
				ScoreThreshold: thresholdFlag(cmd),
				NoThreshold:    noThreshold,
				Namespace:      namespace,
			})
			if err != nil {
				return err
			}
			if jsonMode(cmd) {
				return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
					"answer":  answer.Response.CompletionText(),
					"sources": schema.IDs(answer.Documents),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), answer.Response.CompletionText())
			return nil
		},
	}
	retrievalFlags(cmd)
	return cmd
}

func newIngestCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <location>",
		Short: "Split files under a location into records and store them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openService(cmd)
			if err != nil {
				return err
			}
			defer svc.Close()
			include, _ := cmd.Flags().GetStringSlice("include")
			exclude, _ := cmd.Flags().GetStringSlice("exclude")
			chunkSize, _ := cmd.Flags().GetInt("chunk-size")
			namespace, _ := cmd.Flags().GetString("namespace")
			stats, err := svc.Ingest(cmd.Context(), service.IngestRequest{
				Location:  args[0],
				Namespace: namespace,
				Include:   include,
				Exclude:   exclude,
				ChunkSize: chunkSize,
			})
			if err != nil {
				return err
			}
			if jsonMode(cmd) {
				return writeJSON(cmd.OutOrStdout(), stats)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "files=%d skipped=%d fragments=%d\n", stats.Files, stats.Skipped, stats.Fragments)
			return nil
		},
	}
	cmd.Flags().StringSlice("include", nil, "include patterns")
	cmd.Flags().StringSlice("exclude", nil, "exclude patterns")
	cmd.Flags().Int("chunk-size", 0, "fragment size in bytes (defaults to ingest.chunkSize)")
	return cmd
}

type searchResult struct {
	ID      string  `json:"id"`
	Score   float64 `json:"score"`
	Path    string  `json:"path,omitempty"`
	Content string  `json:"content"`
}

func printDocuments(cmd *cobra.Command, docs []schema.Document) error {
	results := make([]searchResult, 0, len(docs))
	for _, doc := range docs {
		results = append(results, searchResult{
			ID:      doc.ID,
			Score:   doc.Score,
			Path:    meta.GetString(doc.Metadata, meta.PathKey),
			Content: doc.PageContent,
		})
	}
	out := cmd.OutOrStdout()
	if jsonMode(cmd) {
		return writeJSON(out, results)
	}
	for i, result := range results {
		fmt.Fprintf(out, "%d. id=%s score=%.4f", i+1, result.ID, result.Score)
		if result.Path != "" {
			fmt.Fprintf(out, " path=%s", result.Path)
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, indent(result.Content))
	}
	return nil
}

func jsonMode(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func writeJSON(w io.Writer, data interface{}) error {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func indent(text string) string {
	return "   " + strings.ReplaceAll(strings.TrimSpace(text), "\n", "\n   ")
}
