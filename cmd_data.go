package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var (
	historyAgent string
	historyLimit int

	cacheServer string

	indexLimit  int
	searchCount int
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List recorded agent runs, newest first, or show one run",
	Args:  cobra.MaximumNArgs(1),
	RunE:  showHistory,
}

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Summarize token usage and estimated cost per model and agent",
	Args:  cobra.NoArgs,
	RunE:  showUsage,
}

// The result cache lives in the serving process, so these commands talk to it.
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the result cache of a running server",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache entries and hit counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return callServer(cmd, http.MethodGet, "/cache/stats")
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop every cached result",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return callServer(cmd, http.MethodDelete, "/cache")
	},
}

var cacheCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Drop expired cached results",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return callServer(cmd, http.MethodPost, "/cache/cleanup")
	},
}

var knowledgeCmd = &cobra.Command{
	Use:   "knowledge",
	Short: "Manage the knowledge base of high-performing ads",
}

var knowledgeIndexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index the best ads of the dataset by ROAS",
	Args:  cobra.NoArgs,
	RunE:  indexKnowledge,
}

var knowledgeSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find indexed ads similar to a query",
	Args:  cobra.MinimumNArgs(1),
	RunE:  searchKnowledge,
}

var knowledgeClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every indexed ad",
	Args:  cobra.NoArgs,
	RunE:  clearKnowledge,
}

func init() {
	historyCmd.Flags().StringVar(&historyAgent, "agent", "", "Only runs of this agent")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum runs to list")

	cacheCmd.PersistentFlags().StringVar(&cacheServer, "server", "http://localhost:8080", "Base URL of the running server")
	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd, cacheCleanupCmd)

	knowledgeIndexCmd.Flags().IntVar(&indexLimit, "limit", 50, "Maximum ads to index")
	knowledgeSearchCmd.Flags().IntVarP(&searchCount, "top", "k", 3, "Results to return")
	knowledgeCmd.AddCommand(knowledgeIndexCmd, knowledgeSearchCmd, knowledgeClearCmd)
}

func showHistory(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if len(args) == 1 {
		run, ok, err := a.svc.Run(ctx, args[0])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("run %s not found", args[0])
		}
		return printJSON(cmd.OutOrStdout(), run)
	}

	runs, err := a.svc.History(ctx, historyAgent, historyLimit)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tAGENT\tMODEL\tTOKENS\tDURATION\tCACHED\tERROR\tAT")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%t\t%s\t%s\n",
			r.ID, r.Agent, r.Model, r.TotalToken, r.Duration.Round(time.Millisecond), r.Cached, r.ErrorKind, r.CreatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func showUsage(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	usage, err := a.svc.Usage(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tAGENT\tCALLS\tINPUT\tOUTPUT\tTOTAL\tCOST (USD)")
	total := 0.0
	for _, u := range usage {
		total += u.Cost
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%.4f\n", u.Model, u.Agent, u.Calls, u.Input, u.Output, u.Total, u.Cost)
	}
	fmt.Fprintf(w, "\t\t\t\t\t\t%.4f\n", total)
	return w.Flush()
}

func callServer(cmd *cobra.Command, method, path string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(cacheServer, "/")+path, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("reach server: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("server returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	if len(body) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), resp.Status)
		return nil
	}
	_, err = cmd.OutOrStdout().Write(body)
	return err
}

func indexKnowledge(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := a.knowledge.Index(ctx, a.data.Dataset(), indexLimit)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "indexed %d ads\n", n)
	return nil
}

func searchKnowledge(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	snippets, err := a.knowledge.Search(ctx, strings.Join(args, " "), searchCount)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), snippets)
}

func clearKnowledge(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := a.store.ClearKnowledge(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "removed %d ads\n", n)
	return nil
}
