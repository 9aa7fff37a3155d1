package workflow

import (
	"context"
	"fmt"

	"github.com/openctemio/scanctl/internal/app/resolve"
	"github.com/openctemio/scanctl/pkg/domain/assetlist"
	"github.com/openctemio/scanctl/pkg/domain/credential"
	"github.com/openctemio/scanctl/pkg/domain/scan"
	"github.com/openctemio/scanctl/pkg/domain/shared"
	"github.com/openctemio/scanctl/pkg/validator"
)

// =============================================================================
// Scan Definer
// =============================================================================

// DefineScan creates a scan definition from a policy name, explicit targets,
// asset list fragments and credential fragments. References are resolved in
// that order; a definition with the same exact name is refused.
func (s *Service) DefineScan(ctx context.Context, in DefineInput) (res *Result, err error) {
	ctx, log, finish := s.begin(ctx, StageDefine)
	defer func() { finish(err) }()

	if err := in.Validate(); err != nil {
		return nil, err
	}

	policies, err := s.platform.ListPolicies(ctx)
	if err != nil {
		return nil, shared.RemoteError("cannot list scan policies", err)
	}
	pol, err := s.resolver.Policy(policies, in.PolicyName)
	if err != nil {
		return nil, err
	}

	var assetIDs []string
	if refs := nonBlank(in.AssetRefs); len(refs) > 0 {
		lists, err := s.platform.ListAssetLists(ctx)
		if err != nil {
			return nil, shared.RemoteError("cannot list asset lists", err)
		}
		resolved, err := s.resolver.AssetLists(lists, refs)
		if err != nil {
			return nil, err
		}
		assetIDs = assetListIDs(resolved)
	}

	var credentialIDs []string
	if refs := nonBlank(in.CredentialRefs); len(refs) > 0 {
		creds, err := s.platform.ListCredentials(ctx)
		if err != nil {
			return nil, shared.RemoteError("cannot list credentials", err)
		}
		resolved, err := s.resolver.Credentials(creds, refs)
		if err != nil {
			return nil, err
		}
		credentialIDs = credentialIDsOf(resolved)
	}

	targets := validator.ValidateTargets(in.Targets).GetValidTargetStrings()

	var created *scan.Definition
	err = s.withLock(ctx, log, "scan", in.ScanName, func() error {
		defs, err := s.platform.ListScans(ctx)
		if err != nil {
			return shared.RemoteError("cannot list scans", err)
		}
		if len(resolve.All(defs, definitionName, in.ScanName, resolve.Exact)) > 0 {
			return scan.DuplicateError(in.ScanName)
		}

		def, err := scan.NewDefinition(in.ScanName, pol.ID, s.repositoryID, targets, assetIDs, credentialIDs)
		if err != nil {
			return shared.InputError("invalid scan definition", err)
		}

		log.Info("creating scan",
			"scan_name", def.Name,
			"policy_id", def.PolicyID,
			"repository_id", def.RepositoryID,
			"targets", len(def.Targets),
			"asset_list_ids", def.AssetListIDs,
			"credential_ids", def.CredentialIDs,
		)

		created, err = s.platform.CreateScan(ctx, def)
		if err != nil {
			return shared.RemoteError(fmt.Sprintf("cannot create scan [%s]", in.ScanName), err)
		}

		return s.poller.Until(ctx, "scan_definition_visible", func(ctx context.Context) (bool, error) {
			defs, err := s.platform.ListScans(ctx)
			if err != nil {
				return false, shared.RemoteError("cannot list scans", err)
			}
			for _, d := range resolve.All(defs, definitionName, in.ScanName, resolve.Exact) {
				if created.ID == "" || d.ID == created.ID {
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
		Output:  fmt.Sprintf("Scan name: [%s]", in.ScanName),
		Details: map[string]any{
			"scan_id":        created.ID,
			"policy_id":      pol.ID,
			"asset_list_ids": nonNilIDs(assetIDs),
			"credential_ids": nonNilIDs(credentialIDs),
			"targets":        nonNilIDs(targets),
		},
	}, nil
}

func definitionName(d scan.Definition) string { return d.Name }

func assetListIDs(lists []assetlist.AssetList) []string {
	ids := make([]string, len(lists))
	for i, l := range lists {
		ids[i] = l.ID
	}
	return ids
}

func credentialIDsOf(creds []credential.Credential) []string {
	ids := make([]string, len(creds))
	for i, c := range creds {
		ids[i] = c.ID
	}
	return ids
}

func nonNilIDs(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
