// Package workflow implements the four scan lifecycle stages: building an
// asset list from an inventory file, defining a scan, launching it and
// retrieving its report. Stages share no local state; each one reads and
// writes platform resources by name.
package workflow

import (
	"context"
	"io"
	"time"

	"github.com/openctemio/scanctl/internal/app/lock"
	"github.com/openctemio/scanctl/internal/app/resolve"
	"github.com/openctemio/scanctl/internal/app/settle"
	"github.com/openctemio/scanctl/internal/config"
	"github.com/openctemio/scanctl/internal/infra/archive"
	"github.com/openctemio/scanctl/internal/metrics"
	"github.com/openctemio/scanctl/pkg/domain/assetlist"
	"github.com/openctemio/scanctl/pkg/domain/credential"
	"github.com/openctemio/scanctl/pkg/domain/policy"
	"github.com/openctemio/scanctl/pkg/domain/scan"
	"github.com/openctemio/scanctl/pkg/logger"
)

// Stage names used in logs and metrics.
const (
	StageInventory = "inventory"
	StageDefine    = "define"
	StageLaunch    = "launch"
	StageRetrieve  = "retrieve"
	StageStatus    = "status"
)

// earliestStart is the minimum instance start time; listing from it returns
// every instance the platform still knows.
var earliestStart = time.Unix(1, 0)

// ========== Interfaces ==========

// AssetListStore manages asset lists.
type AssetListStore interface {
	ListAssetLists(ctx context.Context) ([]assetlist.AssetList, error)
	CreateAssetList(ctx context.Context, a *assetlist.AssetList) (*assetlist.AssetList, error)
	DeleteAssetList(ctx context.Context, id string) error
}

// PolicyLister lists scan policies.
type PolicyLister interface {
	ListPolicies(ctx context.Context) ([]policy.Policy, error)
}

// CredentialLister lists credentials.
type CredentialLister interface {
	ListCredentials(ctx context.Context) ([]credential.Credential, error)
}

// ScanStore manages scan definitions.
type ScanStore interface {
	ListScans(ctx context.Context) ([]scan.Definition, error)
	CreateScan(ctx context.Context, d *scan.Definition) (*scan.Definition, error)
	LaunchScan(ctx context.Context, id string) (*scan.Instance, error)
}

// InstanceStore reads scan instances and their results.
type InstanceStore interface {
	ListInstances(ctx context.Context, since time.Time) ([]scan.Instance, error)
	GetInstance(ctx context.Context, id string) (*scan.Instance, error)
	ExportInstance(ctx context.Context, id string, w io.Writer) (int64, error)
}

// Platform is everything the stages need from an open platform session.
type Platform interface {
	AssetListStore
	PolicyLister
	CredentialLister
	ScanStore
	InstanceStore
}

// ReportSink stores a retrieved report outside the local machine.
type ReportSink interface {
	Upload(ctx context.Context, path string) (string, error)
}

// ========== Service ==========

// Result is the outcome of a stage.
type Result struct {
	Changed bool           `json:"changed" yaml:"changed"`
	Output  string         `json:"output" yaml:"output"`
	Details map[string]any `json:"details,omitempty" yaml:"details,omitempty"`
}

// Service runs workflow stages against one platform session.
type Service struct {
	platform      Platform
	resolver      *resolve.Resolver
	poller        *settle.Poller
	locker        lock.Locker
	sink          ReportSink
	repositoryID  string
	archiveLimits archive.Limits
	logger        *logger.Logger
}

// ServiceOption is a functional option for Service.
type ServiceOption func(*Service)

// WithLocker serializes stages on the same resource names.
func WithLocker(l lock.Locker) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.locker = l
		}
	}
}

// WithReportSink enables report uploads.
func WithReportSink(sink ReportSink) ServiceOption {
	return func(s *Service) {
		s.sink = sink
	}
}

// WithRepositoryID sets the repository new scans import results into.
func WithRepositoryID(id string) ServiceOption {
	return func(s *Service) {
		if id != "" {
			s.repositoryID = id
		}
	}
}

// WithArchiveLimits overrides the report archive limits.
func WithArchiveLimits(l archive.Limits) ServiceOption {
	return func(s *Service) {
		s.archiveLimits = l
	}
}

// NewService creates a new Service.
func NewService(platform Platform, resolver *resolve.Resolver, poller *settle.Poller, log *logger.Logger, opts ...ServiceOption) *Service {
	svc := &Service{
		platform:      platform,
		resolver:      resolver,
		poller:        poller,
		locker:        lock.Nop{},
		repositoryID:  config.DefaultRepositoryID,
		archiveLimits: archive.DefaultLimits(),
		logger:        log.With("service", "workflow"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// begin tags ctx with the stage and returns a finish func that records the
// outcome.
func (s *Service) begin(ctx context.Context, stage string) (context.Context, *logger.Logger, func(error)) {
	ctx = context.WithValue(ctx, logger.ContextKeyStage, stage)
	log := s.logger.WithContext(ctx)
	start := time.Now()

	return ctx, log, func(err error) {
		metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
		if err != nil {
			kind := ErrorKind(err)
			metrics.StageRunsTotal.WithLabelValues(stage, "failure").Inc()
			metrics.StageFailuresTotal.WithLabelValues(stage, kind).Inc()
			log.Error("stage failed", "kind", kind, "error", err)
			return
		}
		metrics.StageRunsTotal.WithLabelValues(stage, "success").Inc()
		metrics.StageLastSuccess.WithLabelValues(stage).SetToCurrentTime()
		log.Info("stage completed", "duration", time.Since(start).Round(time.Millisecond))
	}
}

// withLock runs fn while holding the lock for a resource name.
func (s *Service) withLock(ctx context.Context, log *logger.Logger, kind, name string, fn func() error) error {
	key := lock.Key(kind, name)
	lease, err := s.locker.Acquire(ctx, key)
	if err != nil {
		return err
	}
	defer func() {
		if rerr := lease.Release(context.WithoutCancel(ctx)); rerr != nil {
			log.Warn("failed to release resource lock", "key", key, "error", rerr)
		}
	}()
	return fn()
}
