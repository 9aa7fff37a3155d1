package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/openctemio/scanctl/internal/app/workflow"
	"github.com/openctemio/scanctl/internal/metrics"
	"github.com/openctemio/scanctl/pkg/domain/shared"
	"github.com/openctemio/scanctl/pkg/logger"
)

type stageFunc func(ctx context.Context, svc *workflow.Service) (*workflow.Result, error)

// stageOptions tune how a stage is opened.
type stageOptions struct {
	withSink bool
}

// runStage validates in, opens the platform and runs fn, printing the result.
// In check mode nothing is opened.
func runStage(cmd *cobra.Command, in workflow.Input, opts stageOptions, fn stageFunc) error {
	out := cmd.OutOrStdout()
	fail := func(err error) error {
		if perr := printFailure(out, flagOutput, err); perr != nil {
			return perr
		}
		return errReported
	}

	cfg, err := loadSettings()
	if err != nil {
		return fail(shared.InputError("invalid configuration", err))
	}
	log := newLogger(cfg)

	runID := shared.NewRunID()
	ctx := context.WithValue(cmd.Context(), logger.ContextKeyRunID, runID.String())

	if cfg.Metrics.TextfilePath != "" {
		defer func() {
			if err := metrics.WriteTextfile(cfg.Metrics.TextfilePath); err != nil {
				log.Warn("failed to write metrics", "error", err)
			}
		}()
	}

	if flagCheck {
		res, err := workflow.Check(in)
		if err != nil {
			return fail(err)
		}
		return printResult(out, flagOutput, res)
	}

	if err := in.Validate(); err != nil {
		return fail(err)
	}
	if err := cfg.ValidateConnection(); err != nil {
		return fail(shared.InputError("invalid connection parameters", err))
	}

	svc, closeAll, err := openService(ctx, cfg, log, opts.withSink)
	if err != nil {
		return fail(err)
	}
	defer closeAll()

	res, err := fn(ctx, svc)
	if err != nil {
		return fail(err)
	}
	return printResult(out, flagOutput, res)
}
