package workflow

import (
	"context"
	"fmt"

	"github.com/openctemio/scanctl/internal/app/resolve"
	"github.com/openctemio/scanctl/pkg/domain/scan"
	"github.com/openctemio/scanctl/pkg/domain/shared"
)

// =============================================================================
// Launcher
// =============================================================================

// LaunchScan starts the scan with the exact name given. A scan that already
// has an instance is not launched again.
func (s *Service) LaunchScan(ctx context.Context, in LaunchInput) (res *Result, err error) {
	ctx, log, finish := s.begin(ctx, StageLaunch)
	defer func() { finish(err) }()

	if err := in.Validate(); err != nil {
		return nil, err
	}

	var (
		def  scan.Definition
		inst *scan.Instance
	)
	err = s.withLock(ctx, log, "scan", in.ScanName, func() error {
		defs, err := s.platform.ListScans(ctx)
		if err != nil {
			return shared.RemoteError("cannot list scans", err)
		}
		def, err = s.resolver.Scan(defs, in.ScanName)
		if err != nil {
			return err
		}

		instances, err := s.platform.ListInstances(ctx, earliestStart)
		if err != nil {
			return shared.RemoteError("cannot list scan results", err)
		}
		if prior := resolve.All(instances, instanceName, in.ScanName, resolve.Exact); len(prior) > 0 {
			log.Info("scan already has results", "scan_name", in.ScanName, "instances", len(prior))
			return scan.AlreadyLaunchedError(in.ScanName)
		}

		inst, err = s.platform.LaunchScan(ctx, def.ID)
		if err != nil {
			return shared.RemoteError(fmt.Sprintf("cannot launch scan [%s]", in.ScanName), err)
		}
		log.Info("scan launched", "scan_name", in.ScanName, "scan_id", def.ID, "instance_id", inst.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Result{
		Changed: true,
		Output:  fmt.Sprintf("Scan name: [%s]", in.ScanName),
		Details: map[string]any{
			"scan_id":     def.ID,
			"instance_id": inst.ID,
		},
	}, nil
}

func instanceName(i scan.Instance) string { return i.Name }
