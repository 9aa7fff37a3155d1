package resolve

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openctemio/scanctl/pkg/domain/assetlist"
	"github.com/openctemio/scanctl/pkg/domain/credential"
	"github.com/openctemio/scanctl/pkg/domain/policy"
	"github.com/openctemio/scanctl/pkg/domain/scan"
	"github.com/openctemio/scanctl/pkg/domain/shared"
	"github.com/openctemio/scanctl/pkg/logger"
)

var (
	policies = []policy.Policy{
		{ID: "10", Name: "Basic Network Scan"},
		{ID: "11", Name: "Linux Hardening"},
		{ID: "12", Name: "basic network scan"},
	}
	lists = []assetlist.AssetList{
		{ID: "1", Name: "web-servers-prod"},
		{ID: "2", Name: "Web-Servers-Stage"},
		{ID: "3", Name: "db-servers"},
	}
	creds = []credential.Credential{
		{ID: "7", Name: "Linux SSH root", Type: "ssh"},
		{ID: "8", Name: "Windows domain admin", Type: "windows"},
	}
	scans = []scan.Definition{
		{ID: "100", Name: "Weekly DMZ"},
		{ID: "101", Name: "weekly dmz"},
	}
)

func TestMode_Matches(t *testing.T) {
	tests := []struct {
		mode Mode
		name string
		ref  string
		want bool
	}{
		{Exact, "Weekly DMZ", "Weekly DMZ", true},
		{Exact, "Weekly DMZ", "weekly dmz", false},
		{ExactFold, "Basic Network Scan", "BASIC network scan", true},
		{ExactFold, "Basic Network Scan", "Basic", false},
		{SubstringFold, "web-servers-prod", "SERVERS", true},
		{SubstringFold, "db-servers", "web", false},
	}
	for _, tt := range tests {
		t.Run(tt.name+"/"+tt.ref, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.mode.Matches(tt.name, tt.ref))
		})
	}
}

func TestResolver_Policy(t *testing.T) {
	r := New(AmbiguityWarn, logger.NewNop())

	p, err := r.Policy(policies, "linux hardening")
	require.NoError(t, err)
	assert.Equal(t, "11", p.ID)

	_, err = r.Policy(policies, "Linux")
	assert.ErrorIs(t, err, policy.ErrPolicyNotFound)
	assert.Contains(t, err.Error(), "[Linux]")
}

func TestResolver_AmbiguityWarn(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Config{Level: "warn", Format: "json", Output: &buf})
	r := New(AmbiguityWarn, log)

	p, err := r.Policy(policies, "Basic Network Scan")
	require.NoError(t, err)
	assert.Equal(t, "10", p.ID, "first match in listing order wins")
	assert.Contains(t, buf.String(), "basic network scan")
}

func TestResolver_AmbiguityError(t *testing.T) {
	r := New(AmbiguityError, logger.NewNop())

	_, err := r.AssetList(lists, "servers")
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrAmbiguous)
	assert.Contains(t, err.Error(), "web-servers-prod")
	assert.Contains(t, err.Error(), "db-servers")

	a, err := r.AssetList(lists, "DB-")
	require.NoError(t, err)
	assert.Equal(t, "3", a.ID)
}

func TestResolver_AssetLists(t *testing.T) {
	r := New(AmbiguityWarn, logger.NewNop())

	got, err := r.AssetLists(lists, []string{"stage", "db"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2", got[0].ID)
	assert.Equal(t, "3", got[1].ID)

	_, err = r.AssetLists(lists, []string{"stage", "mail"})
	assert.ErrorIs(t, err, assetlist.ErrAssetListNotFound)
	assert.Contains(t, err.Error(), "[mail]")
}

func TestResolver_Credentials(t *testing.T) {
	r := New(AmbiguityWarn, logger.NewNop())

	got, err := r.Credentials(creds, []string{"ssh"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "7", got[0].ID)

	_, err = r.Credentials(creds, []string{"oracle"})
	assert.ErrorIs(t, err, credential.ErrCredentialNotFound)

	empty, err := r.Credentials(creds, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestResolver_Scan(t *testing.T) {
	r := New(AmbiguityError, logger.NewNop())

	d, err := r.Scan(scans, "weekly dmz")
	require.NoError(t, err)
	assert.Equal(t, "101", d.ID)

	_, err = r.Scan(scans, "Weekly")
	assert.ErrorIs(t, err, scan.ErrScanNotFound)
}

func TestAllAndLast(t *testing.T) {
	instances := []scan.Instance{
		{ID: "1", Name: "Weekly DMZ"},
		{ID: "2", Name: "Other"},
		{ID: "3", Name: "Weekly DMZ"},
	}
	nameOf := func(i scan.Instance) string { return i.Name }

	all := All(instances, nameOf, "Weekly DMZ", Exact)
	assert.Len(t, all, 2)

	last, ok := Last(instances, nameOf, "Weekly DMZ", Exact)
	require.True(t, ok)
	assert.Equal(t, "3", last.ID)

	_, ok = Last(instances, nameOf, "Missing", Exact)
	assert.False(t, ok)
}

func TestParseAmbiguity(t *testing.T) {
	a, err := ParseAmbiguity("")
	require.NoError(t, err)
	assert.Equal(t, AmbiguityWarn, a)

	a, err = ParseAmbiguity("ERROR")
	require.NoError(t, err)
	assert.Equal(t, AmbiguityError, a)

	_, err = ParseAmbiguity("strict")
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}
