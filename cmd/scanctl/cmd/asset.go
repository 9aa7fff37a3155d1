package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/openctemio/scanctl/internal/app/workflow"
)

var assetCmd = &cobra.Command{
	Use:   "asset",
	Short: "Manage asset lists",
}

var assetCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Publish an asset list from an inventory file",
	Long: `Reads the hostname (DNS) or ip (IP) column of a CSV inventory,
keeps the rows matching --pattern and publishes them as an asset list.
Asset lists with the same exact name are deleted first.`,
	Example: `  scanctl asset create --asset-name web-servers --asset-type DNS \
    --source inventory.csv --pattern '^web'`,
	RunE: runAssetCreate,
}

func init() {
	assetCreateCmd.Flags().String("asset-name", "", "Asset list name (required)")
	assetCreateCmd.Flags().String("asset-type", "", "Source column: DNS or IP (required)")
	assetCreateCmd.Flags().String("source", "", "Path to the CSV inventory (required)")
	assetCreateCmd.Flags().String("pattern", workflow.DefaultPattern, "Regular expression selecting rows")

	assetCmd.AddCommand(assetCreateCmd)
}

func runAssetCreate(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("asset-name")
	assetType, _ := cmd.Flags().GetString("asset-type")
	source, _ := cmd.Flags().GetString("source")
	pattern, _ := cmd.Flags().GetString("pattern")

	in := workflow.InventoryInput{
		AssetName:  name,
		AssetType:  assetType,
		Pattern:    pattern,
		SourcePath: expandPath(source),
	}
	return runStage(cmd, in, stageOptions{}, func(ctx context.Context, svc *workflow.Service) (*workflow.Result, error) {
		return svc.BuildInventory(ctx, in)
	})
}
