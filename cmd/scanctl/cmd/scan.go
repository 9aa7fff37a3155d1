package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/openctemio/scanctl/internal/app/workflow"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Define, launch and retrieve scans",
}

var scanCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Define a scan",
	Long: `Defines a scan from a policy name, explicit targets and asset lists.
Policies match by case-insensitive name; asset lists and credentials match
by case-insensitive name fragment. A scan with the same exact name is refused.`,
	Example: `  scanctl scan create --scan-name "Weekly DMZ" --policy "Basic Network Scan" \
    --asset web-servers --target 10.0.0.0/24 --credential "ssh root"`,
	RunE: runScanCreate,
}

var scanLaunchCmd = &cobra.Command{
	Use:   "launch",
	Short: "Launch a defined scan once",
	RunE:  runScanLaunch,
}

var scanFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the report of the latest completed run",
	RunE:  runScanFetch,
}

var scanStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the status of the latest run",
	RunE:  runScanStatus,
}

func init() {
	for _, c := range []*cobra.Command{scanCreateCmd, scanLaunchCmd, scanFetchCmd, scanStatusCmd} {
		c.Flags().String("scan-name", "", "Scan name (required)")
	}

	scanCreateCmd.Flags().String("policy", "", "Scan policy name (required)")
	scanCreateCmd.Flags().StringSlice("target", nil, "Explicit host, IP, CIDR or range (repeatable)")
	scanCreateCmd.Flags().StringSlice("asset", nil, "Asset list name fragment (repeatable)")
	scanCreateCmd.Flags().StringSlice("credential", nil, "Credential name fragment (repeatable)")

	scanFetchCmd.Flags().String("output-dir", ".", "Directory the report is written to")
	scanFetchCmd.Flags().Bool("upload", false, "Upload the report to the configured bucket")

	scanCmd.AddCommand(scanCreateCmd, scanLaunchCmd, scanFetchCmd, scanStatusCmd)
}

func runScanCreate(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("scan-name")
	policy, _ := cmd.Flags().GetString("policy")
	targets, _ := cmd.Flags().GetStringSlice("target")
	assets, _ := cmd.Flags().GetStringSlice("asset")
	credentials, _ := cmd.Flags().GetStringSlice("credential")

	in := workflow.DefineInput{
		ScanName:       name,
		PolicyName:     policy,
		Targets:        targets,
		AssetRefs:      assets,
		CredentialRefs: credentials,
	}
	return runStage(cmd, in, stageOptions{}, func(ctx context.Context, svc *workflow.Service) (*workflow.Result, error) {
		return svc.DefineScan(ctx, in)
	})
}

func runScanLaunch(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("scan-name")

	in := workflow.LaunchInput{ScanName: name}
	return runStage(cmd, in, stageOptions{}, func(ctx context.Context, svc *workflow.Service) (*workflow.Result, error) {
		return svc.LaunchScan(ctx, in)
	})
}

func runScanFetch(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("scan-name")
	outputDir, _ := cmd.Flags().GetString("output-dir")
	upload, _ := cmd.Flags().GetBool("upload")

	in := workflow.FetchInput{
		ScanName:  name,
		OutputDir: expandPath(outputDir),
		Upload:    upload,
	}
	return runStage(cmd, in, stageOptions{withSink: upload}, func(ctx context.Context, svc *workflow.Service) (*workflow.Result, error) {
		return svc.FetchReport(ctx, in)
	})
}

func runScanStatus(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("scan-name")

	in := workflow.StatusInput{ScanName: name}
	return runStage(cmd, in, stageOptions{}, func(ctx context.Context, svc *workflow.Service) (*workflow.Result, error) {
		return svc.ScanStatus(ctx, in)
	})
}
