package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/openctemio/scanctl/internal/app/resolve"
	"github.com/openctemio/scanctl/internal/infra/archive"
	"github.com/openctemio/scanctl/pkg/domain/scan"
	"github.com/openctemio/scanctl/pkg/domain/shared"
	"github.com/openctemio/scanctl/pkg/logger"
)

// =============================================================================
// Retriever
// =============================================================================

// FetchReport downloads the results of the latest instance of a scan and
// leaves the report document at <output_dir>/<scan_name>.report.
// The instance must be completed.
func (s *Service) FetchReport(ctx context.Context, in FetchInput) (res *Result, err error) {
	ctx, log, finish := s.begin(ctx, StageRetrieve)
	defer func() { finish(err) }()

	if err := in.Validate(); err != nil {
		return nil, err
	}
	if in.Upload && s.sink == nil {
		return nil, shared.InputError("report upload requested but no bucket is configured", nil)
	}
	outputDir := in.OutputDir
	if outputDir == "" {
		outputDir = "."
	}
	if info, err := os.Stat(outputDir); err != nil || !info.IsDir() {
		return nil, shared.InputError(fmt.Sprintf("output directory %s is not usable", outputDir), err)
	}

	var (
		inst       *scan.Instance
		reportPath string
		size       int64
	)
	err = s.withLock(ctx, log, "report", in.ScanName, func() error {
		instances, err := s.platform.ListInstances(ctx, earliestStart)
		if err != nil {
			return shared.RemoteError("cannot list scan results", err)
		}
		latest, ok := resolve.Last(instances, instanceName, in.ScanName, resolve.Exact)
		if !ok {
			return scan.InstanceNotFoundError(in.ScanName)
		}

		inst, err = s.platform.GetInstance(ctx, latest.ID)
		if err != nil {
			return shared.RemoteError(fmt.Sprintf("cannot read results of scan [%s]", in.ScanName), err)
		}
		if !inst.Status.IsCompleted() {
			return &scan.NotCompleteError{Name: in.ScanName, Status: inst.Status}
		}

		reportPath, size, err = s.download(ctx, log, in.ScanName, inst, outputDir)
		return err
	})
	if err != nil {
		return nil, err
	}

	details := map[string]any{
		"instance_id": inst.ID,
		"path":        reportPath,
		"bytes":       size,
	}
	if in.Upload {
		location, err := s.sink.Upload(ctx, reportPath)
		if err != nil {
			return nil, shared.RemoteError(fmt.Sprintf("cannot upload report of scan [%s]", in.ScanName), err)
		}
		details["location"] = location
	}

	return &Result{
		Changed: true,
		Output:  scan.ReportFileName(in.ScanName),
		Details: details,
	}, nil
}

// download exports the instance archive into dir, extracts the report
// document and renames it after the scan. The archive is removed only once
// the report is in place.
func (s *Service) download(ctx context.Context, log *logger.Logger, name string, inst *scan.Instance, dir string) (string, int64, error) {
	archivePath := filepath.Join(dir, scan.ArchiveFileName(name))
	entry := inst.ReportEntryName()

	size, err := s.export(ctx, inst.ID, archivePath)
	if err != nil {
		return "", 0, shared.RemoteError(fmt.Sprintf("cannot export results of scan [%s]", name), err)
	}
	log.Info("exported scan results", "scan_name", name, "instance_id", inst.ID, "archive", archivePath, "bytes", size)

	if err := s.poller.Until(ctx, "report_archive_ready", func(context.Context) (bool, error) {
		ok, err := archive.HasEntry(archivePath, entry)
		if errors.Is(err, archive.ErrEntryNotFound) {
			return false, shared.RemoteError(fmt.Sprintf("export of scan [%s] holds no %s", name, entry), err)
		}
		return ok, err
	}); err != nil {
		return "", 0, err
	}

	extracted, err := archive.Extract(archivePath, entry, dir, s.archiveLimits)
	if err != nil {
		return "", 0, shared.RemoteError(fmt.Sprintf("cannot extract report of scan [%s]", name), err)
	}

	if err := s.poller.Until(ctx, "report_document_present", func(context.Context) (bool, error) {
		_, err := os.Stat(extracted)
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return err == nil, err
	}); err != nil {
		return "", 0, err
	}

	reportPath := filepath.Join(dir, scan.ReportFileName(name))
	if err := os.Rename(extracted, reportPath); err != nil {
		return "", 0, shared.RemoteError(fmt.Sprintf("cannot store report of scan [%s]", name), err)
	}

	if err := os.Remove(archivePath); err != nil {
		log.Warn("failed to remove report archive", "archive", archivePath, "error", err)
	}
	return reportPath, size, nil
}

func (s *Service) export(ctx context.Context, id, path string) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	n, err := s.platform.ExportInstance(ctx, id, f)
	if err != nil {
		_ = f.Close()
		return n, err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return n, err
	}
	return n, f.Close()
}
