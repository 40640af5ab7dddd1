package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"adsdash/agent-app/agents"
	"adsdash/agent-app/core"
	"adsdash/agent-app/scheduler"
	"adsdash/agent-app/workflow"
)

var (
	runParams     string
	runParamsFile string
	runImage      string
	runNoCache    bool
	runSession    string
	runRender     string

	batchConcurrency int

	chatSession string

	reviewHorizon string
	reviewBudget  float64
	reviewGoals   []string
)

var runCmd = &cobra.Command{
	Use:   "run <agent>",
	Short: "Run one agent and print its result as JSON",
	Example: `  adsagent run copywriting --params '{"product_name":"春茶禮盒","tone":"溫暖"}'
  adsagent run image_analysis --image ad.png
  adsagent run image_prompt --render out.png`,
	Args: cobra.ExactArgs(1),
	RunE: runAgent,
}

var batchCmd = &cobra.Command{
	Use:   "batch <agent>...",
	Short: "Run several agents with default params in parallel",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runBatch,
}

var agentsCmd = &cobra.Command{
	Use:   "agents [agent]",
	Short: "List agents, or describe one with its params and output schemas",
	Args:  cobra.MaximumNArgs(1),
	RunE:  listAgents,
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the data assistant; /reset clears the session, /exit quits",
	Args:  cobra.NoArgs,
	RunE:  runChat,
}

var dailyCheckCmd = &cobra.Command{
	Use:   "daily-check",
	Short: "Run the daily check now and push the digest when Telegram is configured",
	Args:  cobra.NoArgs,
	RunE:  runDailyCheck,
}

var workflowCmd = &cobra.Command{
	Use:   "review",
	Short: "Run the account review workflow: check, budget, creatives, then strategy",
	Args:  cobra.NoArgs,
	RunE:  runReview,
}

func init() {
	runCmd.Flags().StringVarP(&runParams, "params", "p", "", "Agent params as a JSON object")
	runCmd.Flags().StringVar(&runParamsFile, "params-file", "", "Read agent params from a JSON file")
	runCmd.Flags().StringVar(&runImage, "image", "", "Image file for vision agents")
	runCmd.Flags().BoolVar(&runNoCache, "no-cache", false, "Skip the result cache")
	runCmd.Flags().StringVar(&runSession, "session", "", "Session id recorded with the run")
	runCmd.Flags().StringVar(&runRender, "render", "", "For image_prompt, render the recommended prompt into this file")
	runCmd.MarkFlagsMutuallyExclusive("params", "params-file")

	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", workflow.DefaultConcurrency, "Agents run at once")

	chatCmd.Flags().StringVar(&chatSession, "session", "cli", "Chat session id")

	workflowCmd.Flags().StringVar(&reviewHorizon, "horizon", "下一季", "Planning horizon")
	workflowCmd.Flags().Float64Var(&reviewBudget, "budget", 0, "Total budget for the strategy step")
	workflowCmd.Flags().StringSliceVar(&reviewGoals, "goal", []string{"提升整體 ROAS"}, "Business goal, repeatable")
	workflowCmd.MarkFlagRequired("budget")
}

func runAgent(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	in := core.AgentInput{Name: args[0], SessionID: runSession, NoCache: runNoCache}
	switch {
	case runParams != "":
		in.Params = json.RawMessage(runParams)
	case runParamsFile != "":
		b, err := os.ReadFile(runParamsFile)
		if err != nil {
			return fmt.Errorf("read params: %w", err)
		}
		in.Params = b
	}
	var img *core.Image
	if runImage != "" {
		data, err := os.ReadFile(runImage)
		if err != nil {
			return fmt.Errorf("read image: %w", err)
		}
		img = &core.Image{MIMEType: http.DetectContentType(data), Data: data}
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	out, err := a.svc.CallAgent(ctx, in, img)
	if err != nil {
		return err
	}
	if err := printJSON(cmd.OutOrStdout(), out); err != nil {
		return err
	}
	if runRender == "" {
		return nil
	}
	prompt, ok := out.Result.(*agents.ImagePromptResult)
	if !ok {
		return fmt.Errorf("--render needs the image_prompt agent, got %s", in.Name)
	}
	data, mime, err := a.svc.RenderImage(ctx, prompt, -1)
	if err != nil {
		return err
	}
	if err := os.WriteFile(runRender, data, 0o644); err != nil {
		return fmt.Errorf("write image: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%s, %d bytes)\n", runRender, mime, len(data))
	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	inputs := make([]core.AgentInput, len(args))
	for i, name := range args {
		inputs[i] = core.AgentInput{Name: name, SessionID: "batch"}
	}
	outs, err := workflow.Batch(ctx, a.svc, inputs, batchConcurrency)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), outs)
}

func listAgents(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		r, err := agents.Lookup(args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), r.Meta())
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tENDPOINT\tCOMPLEXITY\tDESCRIPTION")
	for _, r := range agents.All() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Name(), r.Endpoint(), cfg.ComplexityFor(r.Name(), string(r.Complexity())), r.Description())
	}
	return w.Flush()
}

func runChat(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	scanner := bufio.NewScanner(cmd.InOrStdin())
	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
		case "/exit", "/quit":
			return nil
		case "/reset":
			a.svc.ResetChat(chatSession)
			fmt.Fprintln(out, "（對話已重設）")
		default:
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			res, err := a.svc.Chat(ctx, chatSession, line)
			cancel()
			if err != nil {
				fmt.Fprintf(out, "錯誤：%v\n", err)
				break
			}
			reply := res.Result.(*agents.ChatResult)
			fmt.Fprintln(out, reply.Message)
			for _, s := range reply.Suggestions {
				fmt.Fprintf(out, "  • %s\n", s)
			}
		}
		fmt.Fprint(out, "> ")
	}
	return scanner.Err()
}

func runDailyCheck(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	notifier, err := a.notifier()
	if err != nil {
		return err
	}
	result, err := scheduler.New(a.svc, notifier, timeout, logger).RunDailyCheck(ctx, nil)
	if result != nil {
		if perr := printJSON(cmd.OutOrStdout(), result); perr != nil {
			return perr
		}
	}
	return err
}

func runReview(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	results, err := workflow.AccountReview(a.svc, logger, reviewHorizon, reviewBudget, reviewGoals).Run(ctx)
	if perr := printJSON(cmd.OutOrStdout(), results); perr != nil {
		return perr
	}
	return err
}
