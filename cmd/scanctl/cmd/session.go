package cmd

import (
	"context"
	"time"

	"github.com/openctemio/scanctl/internal/app/resolve"
	"github.com/openctemio/scanctl/internal/app/settle"
	"github.com/openctemio/scanctl/internal/app/workflow"
	"github.com/openctemio/scanctl/internal/config"
	"github.com/openctemio/scanctl/internal/infra/redis"
	"github.com/openctemio/scanctl/internal/infra/sink"
	"github.com/openctemio/scanctl/internal/infra/tenablesc"
	"github.com/openctemio/scanctl/pkg/domain/shared"
	"github.com/openctemio/scanctl/pkg/logger"
)

const closeTimeout = 10 * time.Second

// openService opens a platform session and the optional lock and report
// sink, and wires them into a workflow service. The returned func releases
// everything that was opened.
func openService(ctx context.Context, cfg *config.Config, log *logger.Logger, withSink bool) (*workflow.Service, func(), error) {
	ambiguity, err := resolve.ParseAmbiguity(cfg.Resolve.Ambiguity)
	if err != nil {
		return nil, nil, shared.InputError("invalid ambiguity policy", err)
	}

	settleCfg := settle.Config{
		Interval:    cfg.Settle.Interval,
		MaxInterval: cfg.Settle.MaxInterval,
		MaxAttempts: uint(cfg.Settle.MaxAttempts),
		Timeout:     cfg.Settle.Timeout,
		Exponential: cfg.Settle.Exponential,
	}
	if err := settleCfg.Validate(); err != nil {
		return nil, nil, shared.InputError("invalid settle configuration", err)
	}

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	session, err := tenablesc.Open(ctx, tenablesc.Config{
		BaseURL:            cfg.Platform.ServerURL(),
		Username:           cfg.Platform.Username,
		Password:           cfg.Platform.Password,
		Timeout:            cfg.Platform.Timeout,
		ExportTimeout:      cfg.Platform.ExportTimeout,
		InsecureSkipVerify: cfg.Platform.InsecureSkipVerify,
		RequestsPerSecond:  cfg.Platform.RequestsPerSecond,
		Burst:              cfg.Platform.Burst,
		UserAgent:          userAgent(cfg.Platform.UserAgent),
	}, log)
	if err != nil {
		return nil, nil, err
	}
	closers = append(closers, func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
		defer cancel()
		if err := session.Close(closeCtx); err != nil {
			log.Warn("failed to close platform session", "error", err)
		}
	})

	opts := []workflow.ServiceOption{
		workflow.WithRepositoryID(cfg.Platform.RepositoryID),
	}

	if cfg.Lock.Enabled() {
		client, err := redis.New(&cfg.Lock, log)
		if err != nil {
			cleanup()
			return nil, nil, shared.ConnectionError(cfg.Lock.RedisAddr, err)
		}
		closers = append(closers, func() {
			if err := client.Close(); err != nil {
				log.Warn("failed to close redis client", "error", err)
			}
		})
		opts = append(opts, workflow.WithLocker(redis.NewLocker(client, cfg.Lock.TTL, cfg.Lock.WaitTimeout)))
	}

	if withSink && cfg.Sink.Enabled() {
		s3, err := sink.NewS3Sink(ctx, cfg.Sink, log)
		if err != nil {
			cleanup()
			return nil, nil, shared.InputError("invalid report sink configuration", err)
		}
		opts = append(opts, workflow.WithReportSink(s3))
	}

	svc := workflow.NewService(session, resolve.New(ambiguity, log), settle.New(settleCfg, log), log, opts...)
	return svc, cleanup, nil
}

func userAgent(base string) string {
	if version == "" {
		return base
	}
	return base + "/" + version
}
