package workflow

import (
	"context"
	"fmt"

	"github.com/openctemio/scanctl/internal/app/resolve"
	"github.com/openctemio/scanctl/pkg/domain/scan"
	"github.com/openctemio/scanctl/pkg/domain/shared"
)

// ScanStatus reports the status of the latest instance of a scan. It changes
// nothing on the platform.
func (s *Service) ScanStatus(ctx context.Context, in StatusInput) (res *Result, err error) {
	ctx, _, finish := s.begin(ctx, StageStatus)
	defer func() { finish(err) }()

	if err := in.Validate(); err != nil {
		return nil, err
	}

	instances, err := s.platform.ListInstances(ctx, earliestStart)
	if err != nil {
		return nil, shared.RemoteError("cannot list scan results", err)
	}
	latest, ok := resolve.Last(instances, instanceName, in.ScanName, resolve.Exact)
	if !ok {
		return nil, scan.InstanceNotFoundError(in.ScanName)
	}

	inst, err := s.platform.GetInstance(ctx, latest.ID)
	if err != nil {
		return nil, shared.RemoteError(fmt.Sprintf("cannot read results of scan [%s]", in.ScanName), err)
	}

	details := map[string]any{
		"instance_id": inst.ID,
		"status":      inst.Status.String(),
		"completed":   inst.Status.IsCompleted(),
	}
	if !inst.StartTime.IsZero() {
		details["start_time"] = inst.StartTime.UTC()
	}
	if !inst.FinishTime.IsZero() {
		details["finish_time"] = inst.FinishTime.UTC()
	}

	return &Result{
		Changed: false,
		Output:  inst.Status.String(),
		Details: details,
	}, nil
}
