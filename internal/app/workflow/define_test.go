package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openctemio/scanctl/internal/app/resolve"
	"github.com/openctemio/scanctl/pkg/domain/assetlist"
	"github.com/openctemio/scanctl/pkg/logger"
)

func seededAssets() []assetlist.AssetList {
	return []assetlist.AssetList{
		{ID: "1", Name: "web-servers-prod", Kind: assetlist.KindHostnames},
		{ID: "2", Name: "db-servers", Kind: assetlist.KindIPs},
	}
}

func TestDefineScan_MergesTargetsAndAssets(t *testing.T) {
	p := newFakePlatform()
	p.assetLists = seededAssets()
	svc := newTestService(p, WithRepositoryID("3"))

	res, err := svc.DefineScan(context.Background(), DefineInput{
		ScanName:       "Weekly DMZ",
		PolicyName:     "basic network scan",
		Targets:        []string{"10.0.0.1", "web1", "10.0.0.1"},
		AssetRefs:      []string{"WEB-SERVERS"},
		CredentialRefs: []string{"ssh root"},
	})

	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, "Scan name: [Weekly DMZ]", res.Output)

	require.Len(t, p.scans, 1)
	def := p.scans[0]
	assert.Equal(t, "Weekly DMZ", def.Name)
	assert.Equal(t, "10", def.PolicyID)
	assert.Equal(t, "3", def.RepositoryID)
	assert.Equal(t, []string{"10.0.0.1", "web1"}, def.Targets)
	assert.Equal(t, []string{"1"}, def.AssetListIDs)
	assert.Equal(t, []string{"7"}, def.CredentialIDs)
	assert.True(t, def.IsAuthenticated())
}

func TestDefineScan_AssetsOnly(t *testing.T) {
	p := newFakePlatform()
	p.assetLists = seededAssets()
	svc := newTestService(p)

	_, err := svc.DefineScan(context.Background(), DefineInput{
		ScanName:   "DB sweep",
		PolicyName: "Advanced Scan",
		AssetRefs:  []string{"db"},
	})

	require.NoError(t, err)
	require.Len(t, p.scans, 1)
	assert.Empty(t, p.scans[0].Targets)
	assert.Equal(t, []string{"2"}, p.scans[0].AssetListIDs)
	assert.Equal(t, "1", p.scans[0].RepositoryID)
	assert.False(t, p.called("ListCredentials"))
}

func TestDefineScan_RefusesDuplicate(t *testing.T) {
	p := newFakePlatform()
	svc := newTestService(p)
	in := DefineInput{ScanName: "Weekly DMZ", PolicyName: "Basic Network Scan", Targets: []string{"web1"}}

	_, err := svc.DefineScan(context.Background(), in)
	require.NoError(t, err)

	_, err = svc.DefineScan(context.Background(), in)
	require.Error(t, err)
	assert.Equal(t, KindDuplicateScan, ErrorKind(err))
	assert.Contains(t, err.Error(), "[Weekly DMZ]")
	assert.Len(t, p.scans, 1)
}

func TestDefineScan_ResolutionFailures(t *testing.T) {
	tests := []struct {
		name string
		in   DefineInput
		kind string
		msg  string
	}{
		{
			name: "policy not found",
			in:   DefineInput{ScanName: "Weekly", PolicyName: "Linux Baseline", Targets: []string{"web1"}},
			kind: KindPolicyNotFound,
			msg:  "[Linux Baseline]",
		},
		{
			name: "asset list not found",
			in:   DefineInput{ScanName: "Weekly", PolicyName: "Advanced Scan", AssetRefs: []string{"mail"}},
			kind: KindAssetNotFound,
			msg:  "[mail]",
		},
		{
			name: "credential not found",
			in: DefineInput{
				ScanName:       "Weekly",
				PolicyName:     "Advanced Scan",
				Targets:        []string{"web1"},
				CredentialRefs: []string{"oracle"},
			},
			kind: KindCredNotFound,
			msg:  "[oracle]",
		},
		{
			name: "no targets or assets",
			in:   DefineInput{ScanName: "Weekly", PolicyName: "Advanced Scan"},
			kind: KindInput,
			msg:  "targets: is required when asset_refs is empty",
		},
		{
			name: "malformed target",
			in:   DefineInput{ScanName: "Weekly", PolicyName: "Advanced Scan", Targets: []string{"web1;rm"}},
			kind: KindInput,
			msg:  "targets[0]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newFakePlatform()
			p.assetLists = seededAssets()
			svc := newTestService(p)

			_, err := svc.DefineScan(context.Background(), tt.in)

			require.Error(t, err)
			assert.Equal(t, tt.kind, ErrorKind(err))
			assert.Contains(t, err.Error(), tt.msg)
			assert.False(t, p.called("CreateScan"))
		})
	}
}

func TestDefineScan_Ambiguity(t *testing.T) {
	p := newFakePlatform()
	p.assetLists = []assetlist.AssetList{
		{ID: "1", Name: "web-servers-prod"},
		{ID: "2", Name: "web-servers-stage"},
	}
	in := DefineInput{ScanName: "Web", PolicyName: "Advanced Scan", AssetRefs: []string{"web-servers"}}

	t.Run("warn picks the first match", func(t *testing.T) {
		svc := newTestService(p)

		_, err := svc.DefineScan(context.Background(), in)

		require.NoError(t, err)
		require.Len(t, p.scans, 1)
		assert.Equal(t, []string{"1"}, p.scans[0].AssetListIDs)
	})

	t.Run("error refuses", func(t *testing.T) {
		p.scans = nil
		svc := NewService(p, resolve.New(resolve.AmbiguityError, logger.NewNop()), fastPoller(), logger.NewNop())

		_, err := svc.DefineScan(context.Background(), in)

		require.Error(t, err)
		assert.Equal(t, KindAmbiguous, ErrorKind(err))
		assert.Empty(t, p.scans)
	})
}

func TestDefineScan_SettleTimeout(t *testing.T) {
	p := newFakePlatform()
	p.hideNew = true
	svc := newTestService(p)

	_, err := svc.DefineScan(context.Background(), DefineInput{
		ScanName:   "Weekly",
		PolicyName: "Advanced Scan",
		Targets:    []string{"web1"},
	})

	require.Error(t, err)
	assert.Equal(t, KindSettleTimeout, ErrorKind(err))
}
