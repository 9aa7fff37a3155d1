package workflow

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/openctemio/scanctl/internal/app/resolve"
	"github.com/openctemio/scanctl/pkg/domain/assetlist"
	"github.com/openctemio/scanctl/pkg/domain/shared"
	"github.com/openctemio/scanctl/pkg/logger"
	"github.com/openctemio/scanctl/pkg/tabular"
)

// =============================================================================
// Asset List Builder
// =============================================================================

// BuildInventory publishes the rows of an inventory file matching a pattern as
// an asset list. Any asset list already carrying the exact name is replaced.
func (s *Service) BuildInventory(ctx context.Context, in InventoryInput) (res *Result, err error) {
	ctx, log, finish := s.begin(ctx, StageInventory)
	defer func() { finish(err) }()

	if err := in.Validate(); err != nil {
		return nil, err
	}
	sourceType, err := assetlist.ParseSourceType(in.AssetType)
	if err != nil {
		return nil, shared.InputError("invalid asset type", err)
	}

	members, err := selectMembers(log, in.SourcePath, sourceType.Column(), in.Pattern)
	if err != nil {
		return nil, err
	}

	list, err := assetlist.New(in.AssetName, sourceType.Kind(), members)
	if err != nil {
		return nil, shared.InputError("invalid asset list", err)
	}

	log.Info("building asset list",
		"asset_name", in.AssetName,
		"asset_type", sourceType,
		"source_path", in.SourcePath,
		"members", len(members),
	)

	var (
		created  *assetlist.AssetList
		replaced int
	)
	err = s.withLock(ctx, log, "asset", in.AssetName, func() error {
		existing, err := s.platform.ListAssetLists(ctx)
		if err != nil {
			return shared.RemoteError("cannot list asset lists", err)
		}

		for _, old := range resolve.All(existing, assetListName, in.AssetName, resolve.Exact) {
			if err := s.platform.DeleteAssetList(ctx, old.ID); err != nil {
				return shared.RemoteError(fmt.Sprintf("cannot delete asset list [%s] (id %s)", old.Name, old.ID), err)
			}
			replaced++
			log.Info("deleted existing asset list", "asset_name", old.Name, "asset_list_id", old.ID)
		}

		created, err = s.platform.CreateAssetList(ctx, list)
		if err != nil {
			return shared.RemoteError(fmt.Sprintf("cannot create asset list [%s]", in.AssetName), err)
		}

		return s.poller.Until(ctx, "asset_list_visible", func(ctx context.Context) (bool, error) {
			lists, err := s.platform.ListAssetLists(ctx)
			if err != nil {
				return false, shared.RemoteError("cannot list asset lists", err)
			}
			for _, l := range resolve.All(lists, assetListName, in.AssetName, resolve.Exact) {
				if created.ID == "" || l.ID == created.ID {
					return true, nil
				}
			}
			return false, nil
		})
	})
	if err != nil {
		return nil, err
	}

	return &Result{
		Changed: true,
		Output:  fmt.Sprintf("Asset list name: [%s]", in.AssetName),
		Details: map[string]any{
			"asset_list_id": created.ID,
			"members":       len(members),
			"replaced":      replaced,
		},
	}, nil
}

// selectMembers reads column from the inventory at path and keeps the
// non-empty cells that match pattern. An invalid pattern selects nothing.
func selectMembers(log *logger.Logger, path, column, pattern string) ([]string, error) {
	table, err := tabular.Load(path)
	if err != nil {
		return nil, shared.InputError(fmt.Sprintf("cannot load file %s", path), err)
	}

	if pattern == "" {
		pattern = DefaultPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		if !table.HasColumn(column) {
			return nil, missingColumn(path, column)
		}
		log.Warn("invalid row pattern, no rows selected", "pattern", pattern, "error", err)
		return []string{}, nil
	}

	members, err := table.Filter(column, re)
	if err != nil {
		if errors.Is(err, tabular.ErrColumnNotFound) {
			return nil, missingColumn(path, column)
		}
		return nil, shared.InputError(fmt.Sprintf("cannot read file %s", path), err)
	}
	return members, nil
}

func missingColumn(path, column string) error {
	return shared.InputError(fmt.Sprintf("column [%s] not found in %s", column, path), tabular.ErrColumnNotFound)
}

func assetListName(a assetlist.AssetList) string { return a.Name }
