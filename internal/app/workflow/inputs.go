package workflow

import (
	"fmt"
	"strings"

	"github.com/openctemio/scanctl/pkg/domain/shared"
	"github.com/openctemio/scanctl/pkg/validator"
)

// DefaultPattern selects every inventory row.
const DefaultPattern = ".*"

var inputValidator = validator.New()

// Input is a stage input that can be checked without contacting the platform.
type Input interface {
	Validate() error
}

// InventoryInput represents the input for building an asset list.
type InventoryInput struct {
	AssetName  string `json:"asset_name" validate:"required,max=255,resource_name"`
	AssetType  string `json:"asset_type" validate:"required,source_type"`
	Pattern    string `json:"pattern"`
	SourcePath string `json:"source_path" validate:"required"`
}

// Validate implements Input.
func (in InventoryInput) Validate() error {
	return validateInput("asset create", in)
}

// DefineInput represents the input for defining a scan.
// At least one of Targets or AssetRefs must be set; both may be.
type DefineInput struct {
	ScanName       string   `json:"scan_name" validate:"required,max=255,resource_name"`
	PolicyName     string   `json:"policy_name" validate:"required"`
	Targets        []string `json:"server_targets" validate:"dive,scan_target"`
	AssetRefs      []string `json:"asset_refs" validate:"dive,required"`
	CredentialRefs []string `json:"credential_refs" validate:"dive,required"`
}

// Validate implements Input.
func (in DefineInput) Validate() error {
	if err := validateInput("scan create", in); err != nil {
		return err
	}
	if len(nonBlank(in.Targets)) == 0 && len(nonBlank(in.AssetRefs)) == 0 {
		return shared.InputError(
			fmt.Sprintf("scan [%s] needs server targets or asset lists", in.ScanName),
			validator.ValidationErrors{{Field: "targets", Message: "is required when asset_refs is empty"}})
	}
	return nil
}

// LaunchInput represents the input for launching a scan.
type LaunchInput struct {
	ScanName string `json:"scan_name" validate:"required"`
}

// Validate implements Input.
func (in LaunchInput) Validate() error {
	return validateInput("scan launch", in)
}

// FetchInput represents the input for retrieving a report.
type FetchInput struct {
	ScanName  string `json:"scan_name" validate:"required"`
	OutputDir string `json:"output_dir"`
	Upload    bool   `json:"upload"`
}

// Validate implements Input.
func (in FetchInput) Validate() error {
	return validateInput("scan fetch", in)
}

// StatusInput represents the input for the status probe.
type StatusInput struct {
	ScanName string `json:"scan_name" validate:"required"`
}

// Validate implements Input.
func (in StatusInput) Validate() error {
	return validateInput("scan status", in)
}

// Check validates in and reports that nothing would be changed yet.
func Check(in Input) (*Result, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return &Result{Changed: false, Output: "check mode: inputs are valid, no changes made"}, nil
}

func validateInput(command string, in any) error {
	if err := inputValidator.Validate(in); err != nil {
		return shared.InputError("invalid "+command+" parameters", err)
	}
	return nil
}

func nonBlank(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
