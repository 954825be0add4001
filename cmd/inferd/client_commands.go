package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"inferd/internal/config"
	"inferd/internal/pollclient"
)

// pollFlags binds the poll cadence flags shared by the client commands.
type pollFlags struct {
	interval    time.Duration
	maxAttempts int
}

func (p *pollFlags) register(cmd *cobra.Command) {
	cmd.Flags().DurationVar(&p.interval, "interval", pollclient.DefaultInterval, "Delay between status polls")
	cmd.Flags().IntVar(&p.maxAttempts, "max-attempts", pollclient.DefaultMaxAttempts, "Poll budget before giving up")
}

// resolve merges the poll cadence sources: an explicit flag wins, then the
// config file's poll defaults, then the library defaults.
func (p *pollFlags) resolve(cmd *cobra.Command, configPath string) (pollclient.PollOptions, error) {
	o := pollclient.PollOptions{Interval: p.interval, MaxAttempts: p.maxAttempts}
	if configPath == "" {
		return o, nil
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return o, err
	}
	interval, attempts, err := cfg.PollDefaults()
	if err != nil {
		return o, err
	}
	if !cmd.Flags().Changed("interval") {
		o.Interval = interval
	}
	if !cmd.Flags().Changed("max-attempts") {
		o.MaxAttempts = attempts
	}
	return o, nil
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show coordinator status",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := pollclient.New(opts.serverURL)
			st, err := c.StatusReport(cmd.Context())
			if err != nil {
				return err
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(cmd.OutOrStdout())
			tw.SetStyle(table.StyleRounded)
			tw.AppendHeader(table.Row{"MODEL", "PHASE", "CAP", "INFLIGHT", "QUEUED", "RUNNING", "COMPLETED", "FAILED", "LAST ERROR"})
			for _, m := range st.Models {
				tw.AppendRow(table.Row{
					m.Model, string(m.Phase), strconv.Itoa(m.Capacity), strconv.Itoa(m.Inflight),
					strconv.Itoa(m.Queued), strconv.Itoa(m.Running), strconv.Itoa(m.Completed),
					strconv.Itoa(m.Failed), m.LastError,
				})
			}
			tw.Render()
			fmt.Fprintf(cmd.OutOrStdout(), "uptime: %ds\n", st.UptimeSeconds)
			return nil
		},
	}
}

func newWarmupCmd(opts *rootOptions) *cobra.Command {
	pf := &pollFlags{}
	cmd := &cobra.Command{
		Use:   "warmup <model>",
		Short: "Trigger a model load and wait until it is ready",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			model := args[0]
			c := pollclient.New(opts.serverURL)
			resp, err := c.Warmup(cmd.Context(), model)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "warmup triggered: %s\n", resp.Phase)
			poll, err := pf.resolve(cmd, opts.configPath)
			if err != nil {
				return err
			}
			phase, err := c.AwaitReady(cmd.Context(), model, poll)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "model %s is %s\n", model, phase)
			return nil
		},
	}
	pf.register(cmd)
	return cmd
}

func newInferCmd(opts *rootOptions) *cobra.Command {
	pf := &pollFlags{}
	var data string
	var withWarmup bool
	cmd := &cobra.Command{
		Use:   "infer <model>",
		Short: "Submit an inference payload and wait for the result",
		Long:  "Reads the JSON payload from --data, or from stdin when --data is omitted.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			model := args[0]
			payload := json.RawMessage(data)
			if data == "" {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				payload = json.RawMessage(b)
			}
			if !json.Valid(payload) {
				return fmt.Errorf("payload is not valid JSON")
			}
			c := pollclient.New(opts.serverURL)
			ctx := cmd.Context()
			poll, err := pf.resolve(cmd, opts.configPath)
			if err != nil {
				return err
			}

			if withWarmup {
				st, err := c.RunWithWarmup(ctx, model, payload, pollclient.RetryPolicy{Poll: poll})
				if err != nil {
					return err
				}
				return printResult(cmd.OutOrStdout(), st.Result)
			}
			jobID, err := c.Submit(ctx, model, payload)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "job %s submitted\n", jobID)
			st, err := c.AwaitJob(ctx, model, jobID, poll)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), st.Result)
		},
	}
	pf.register(cmd)
	cmd.Flags().StringVar(&data, "data", "", "JSON payload (reads stdin when omitted)")
	cmd.Flags().BoolVar(&withWarmup, "with-warmup", false, "Recover from cold starts: warm up and resubmit on retryable failures")
	return cmd
}

func newResetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <model>",
		Short: "Force a model back to UNLOADED",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := pollclient.New(opts.serverURL)
			resp, err := c.Reset(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "model %s is %s\n", resp.Model, resp.Phase)
			return nil
		},
	}
}

func printResult(w io.Writer, result json.RawMessage) error {
	if len(result) == 0 {
		result = json.RawMessage("null")
	}
	_, err := fmt.Fprintln(w, string(result))
	return err
}
