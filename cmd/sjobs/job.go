package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/flemzord/sjobs/internal/config"
	"github.com/flemzord/sjobs/internal/jobs"
	"github.com/flemzord/sjobs/internal/security"
	"github.com/flemzord/sjobs/modules/jobs/rest"
	"github.com/flemzord/sjobs/pkg/app"
	"github.com/spf13/cobra"
)

// restModuleID is the config entry job commands read their client from.
const restModuleID = "jobs.rest"

func jobCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Schedule, cancel and inspect jobs on the remote job service",
	}
	cmd.AddCommand(jobScheduleCmd(), jobCancelCmd(), jobGetCmd())
	return cmd
}

// newJobClient builds a REST client from the jobs.rest entry of the
// configuration selected by --config.
func newJobClient(cmd *cobra.Command) (*rest.Client, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	if cfgPath == "" {
		resolved, err := app.ResolveConfigPath()
		if err != nil {
			return nil, err
		}
		cfgPath = resolved
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	node, ok := cfg.Modules[restModuleID]
	if !ok {
		configured := config.JobsModules(cfg)
		if len(configured) == 0 {
			return nil, fmt.Errorf("config: %s: no %s module configured", cfgPath, restModuleID)
		}
		return nil, fmt.Errorf("config: %s: job commands need %s, configured clients: %s",
			cfgPath, restModuleID, strings.Join(configured, ", "))
	}
	var restCfg rest.Config
	if err := node.Decode(&restCfg); err != nil {
		return nil, fmt.Errorf("config: %s: %s: %w", cfgPath, restModuleID, err)
	}

	redactor := security.NewRedactor()
	redactor.AddLiteral(restCfg.Token)
	logger := security.NewLogger(cmd.ErrOrStderr(), cfg.Log.SlogLevel(), cfg.Log.Format, redactor)
	return rest.NewClient(restCfg, logger, nil)
}

func jobScheduleCmd() *cobra.Command {
	var req jobs.ScheduleRequest
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Schedule a job",
		Example: `  sjobs job schedule --process-id orders --instance-id 42 --in 15m
  sjobs job schedule --process-id orders --instance-id 42 --in 1m --every 30s --limit 5
  sjobs job schedule --process-id orders --instance-id 42 --cron "0 9 * * 1-5" --timezone Europe/Paris`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			desc, err := req.Description()
			if err != nil {
				return err
			}
			client, err := newJobClient(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = client.Stop(cmd.Context()) }()

			if err := jobs.Schedule(cmd.Context(), client, desc); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "scheduled job %s\n", desc.ID)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.ProcessID, "process-id", "", "Process definition id (required)")
	f.StringVar(&req.ProcessInstanceID, "instance-id", "", "Process instance id; omit for a definition-level job")
	f.StringVar(&req.RootProcessID, "root-process-id", "", "Root process definition id")
	f.StringVar(&req.RootProcessInstanceID, "root-instance-id", "", "Root process instance id")
	f.StringVar(&req.NodeInstanceID, "node-instance-id", "", "Node instance id owning the timer")
	f.StringVar(&req.ID, "id", "", "Job id (generated when empty)")
	f.IntVar(&req.Priority, "priority", 0, "Job priority")
	f.StringVar(&req.At, "at", "", "Fire at an RFC 3339 instant")
	f.StringVar(&req.Delay, "in", "", "Fire after a duration")
	f.StringVar(&req.Interval, "every", "", "Repeat interval, with --in")
	f.IntVar(&req.Limit, "limit", 0, "Repetitions after the first firing, with --every (negative for unbounded)")
	f.StringVar(&req.Cron, "cron", "", "Fire at the next activation of a 5-field cron expression")
	f.StringVar(&req.Timezone, "timezone", "", "IANA time zone for --cron (default UTC)")
	_ = cmd.MarkFlagRequired("process-id")
	cmd.MarkFlagsOneRequired("at", "in", "cron")
	cmd.MarkFlagsMutuallyExclusive("at", "in", "cron")
	return cmd
}

func jobCancelCmd() *cobra.Command {
	var ignoreMissing bool
	cmd := &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel a scheduled job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newJobClient(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = client.Stop(cmd.Context()) }()

			err = client.CancelJob(cmd.Context(), args[0])
			switch {
			case ignoreMissing && errors.Is(err, jobs.ErrJobNotFound):
				fmt.Fprintf(cmd.OutOrStdout(), "job %s not found, nothing to cancel\n", args[0])
				return nil
			case err != nil:
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cancelled job %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&ignoreMissing, "ignore-missing", false, "Succeed when the job does not exist")
	return cmd
}

func jobGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Print the next fire time of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newJobClient(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = client.Stop(cmd.Context()) }()

			at, err := client.ScheduledTime(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", args[0], at.Format(time.RFC3339Nano))
			return nil
		},
	}
}
