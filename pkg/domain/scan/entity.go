package scan

import (
	"fmt"
	"strings"
	"time"

	"github.com/openctemio/scanctl/pkg/domain/shared"
)

// Definition is a named scan configuration stored on the platform.
type Definition struct {
	ID            string
	Name          string
	PolicyID      string
	RepositoryID  string
	CredentialIDs []string
	Targets       []string
	AssetListIDs  []string
	CreatedAt     time.Time
}

// NewDefinition builds a definition from resolved references. Explicit targets
// and asset lists may both be set; they end up in a single definition.
func NewDefinition(name, policyID, repositoryID string, targets, assetListIDs, credentialIDs []string) (*Definition, error) {
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewDomainError("VALIDATION", "scan name is required", shared.ErrValidation)
	}
	if policyID == "" {
		return nil, shared.NewDomainError("VALIDATION", "policy id is required", shared.ErrValidation)
	}
	if len(targets) == 0 && len(assetListIDs) == 0 {
		return nil, shared.NewDomainError("VALIDATION",
			fmt.Sprintf("scan [%s] needs explicit targets or asset lists", name), shared.ErrValidation)
	}
	if credentialIDs == nil {
		credentialIDs = []string{}
	}
	return &Definition{
		Name:          name,
		PolicyID:      policyID,
		RepositoryID:  repositoryID,
		CredentialIDs: credentialIDs,
		Targets:       nonNil(targets),
		AssetListIDs:  nonNil(assetListIDs),
	}, nil
}

// IsAuthenticated reports whether the definition carries credentials.
func (d *Definition) IsAuthenticated() bool {
	return len(d.CredentialIDs) > 0
}

// Instance is one execution of a Definition.
type Instance struct {
	ID         string
	Name       string
	Status     Status
	StartTime  time.Time
	FinishTime time.Time
}

// ReportEntryName is the name of the normalized result document inside the
// export archive of this instance.
func (i Instance) ReportEntryName() string {
	return i.ID + ReportEntrySuffix
}

// ReportEntrySuffix is the extension of the result document inside an export.
const ReportEntrySuffix = ".nessus"

// ReportSuffix is the extension of the final local report document.
const ReportSuffix = ".report"

// ReportFileName returns the final local document name for a scan. Path
// separators are replaced by underscores.
func ReportFileName(scanName string) string {
	return fileSafe(scanName) + ReportSuffix
}

// ArchiveFileName returns the temporary export archive name for a scan.
// Whitespace, plus signs and path separators are replaced by underscores.
func ArchiveFileName(scanName string) string {
	var b strings.Builder
	for _, r := range scanName + "_report.zip" {
		switch r {
		case ' ', '\t', '\n', '\r', '\f', '\v', '+', '/', '\\':
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// fileSafe keeps a scan name to a single path element.
func fileSafe(name string) string {
	return strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' {
			return '_'
		}
		return r
	}, name)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
