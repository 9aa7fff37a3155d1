package workflow

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openctemio/scanctl/internal/app/lock"
	"github.com/openctemio/scanctl/internal/app/resolve"
	"github.com/openctemio/scanctl/internal/app/settle"
	"github.com/openctemio/scanctl/pkg/domain/assetlist"
	"github.com/openctemio/scanctl/pkg/domain/credential"
	"github.com/openctemio/scanctl/pkg/domain/policy"
	"github.com/openctemio/scanctl/pkg/domain/scan"
	"github.com/openctemio/scanctl/pkg/domain/shared"
)

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{shared.ConnectionError("sc.example.com", assert.AnError), KindConnection},
		{shared.InputError("cannot load file x.csv", assert.AnError), KindInput},
		{policy.NotFoundError("Linux Baseline"), KindPolicyNotFound},
		{assetlist.NotFoundError("web"), KindAssetNotFound},
		{credential.NotFoundError("ssh"), KindCredNotFound},
		{scan.DuplicateError("Weekly"), KindDuplicateScan},
		{scan.NotFoundError("Weekly"), KindScanNotFound},
		{scan.AlreadyLaunchedError("Weekly"), KindAlreadyLaunched},
		{scan.InstanceNotFoundError("Weekly"), KindInstanceNotFound},
		{fmt.Errorf("fetch: %w", &scan.NotCompleteError{Name: "Weekly", Status: scan.StatusRunning}), KindNotComplete},
		{shared.RemoteError("cannot create scan [Weekly]", assert.AnError), KindRemote},
		{fmt.Errorf("%w: visible", settle.ErrTimeout), KindSettleTimeout},
		{resolve.AmbiguousError("policy", "basic", []string{"a", "b"}), KindAmbiguous},
		{lock.HeldError("scanctl:lock:scan:weekly"), KindLockHeld},
		{context.Canceled, KindCanceled},
		{assert.AnError, KindUnknown},
	}

	for _, tt := range tests {
		name := "nil"
		if tt.err != nil {
			name = tt.err.Error()
		}
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorKind(tt.err))
		})
	}
}

func TestCheck(t *testing.T) {
	res, err := Check(DefineInput{ScanName: "Weekly", PolicyName: "Advanced Scan", Targets: []string{"web1"}})
	require.NoError(t, err)
	assert.False(t, res.Changed)

	_, err = Check(DefineInput{ScanName: "Weekly", PolicyName: "Advanced Scan"})
	require.Error(t, err)
	assert.Equal(t, KindInput, ErrorKind(err))

	_, err = Check(InventoryInput{AssetName: "web", AssetType: "FQDN", SourcePath: "x.csv"})
	assert.Equal(t, KindInput, ErrorKind(err))

	_, err = Check(FetchInput{})
	assert.Equal(t, KindInput, ErrorKind(err))
}
