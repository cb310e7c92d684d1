package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/saba-chan/saba-core/internal/infra/updater"
)

func init() {
	updateCmd.AddCommand(updateCheckCmd, updateApplyCmd)
	updateApplyCmd.Flags().StringVar(&updateApplyKind, "kind", "module", "component kind: core_daemon, cli, gui, discord_bot, module, extension")
	updateApplyCmd.Flags().StringVar(&updateApplyPath, "install-path", "", "install directory (required)")
	updateApplyCmd.Flags().StringVar(&updateApplyProcess, "process-name", "", "process name to wait on before replacing a running binary")
	updateApplyCmd.MarkFlagRequired("install-path")
	rootCmd.AddCommand(updateCmd)
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Check for and apply component updates",
}

var updateCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check GitHub releases for available updates",
	RunE:  runUpdateCheck,
}

func runUpdateCheck(cmd *cobra.Command, args []string) error {
	c, err := newAPIClient()
	if err != nil {
		return err
	}
	var resp struct {
		ReleaseVersion string                      `json:"release_version"`
		Resolved       map[string]updater.Resolved `json:"resolved"`
	}
	if err := c.call("POST", "/updates/check", nil, &resp); err != nil {
		return err
	}
	fmt.Printf("authoritative release: %s\n", resp.ReleaseVersion)
	for key, r := range resp.Resolved {
		if r.IsUnresolved() {
			fmt.Printf("  %s: unresolved\n", key)
			continue
		}
		fmt.Printf("  %s: %s (from %s)\n", key, r.LatestVersion, r.SourceRelease)
	}
	return nil
}

var (
	updateApplyKind    string
	updateApplyPath    string
	updateApplyProcess string
)

var updateApplyCmd = &cobra.Command{
	Use:   "apply KEY",
	Short: "Download (if needed) and apply a component update",
	Args:  cobra.ExactArgs(1),
	RunE:  runUpdateApply,
}

func runUpdateApply(cmd *cobra.Command, args []string) error {
	c, err := newAPIClient()
	if err != nil {
		return err
	}
	key := args[0]
	if err := c.call("POST", "/updates/"+key+"/download", nil, nil); err != nil {
		return err
	}
	req := map[string]any{
		"kind":         updateApplyKind,
		"install_path": updateApplyPath,
		"process_name": updateApplyProcess,
	}
	if err := c.call("POST", "/updates/"+key+"/apply", req, nil); err != nil {
		return err
	}
	fmt.Printf("applied %s\n", key)
	return nil
}
