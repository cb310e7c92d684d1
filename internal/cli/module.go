package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/saba-chan/saba-core/internal/domain"
)

func init() {
	moduleCmd.AddCommand(moduleListCmd, moduleRefreshCmd)
	rootCmd.AddCommand(moduleCmd)
}

var moduleCmd = &cobra.Command{
	Use:   "module",
	Short: "Discover and refresh per-game lifecycle modules",
}

var moduleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List discovered modules",
	RunE:  runModuleList,
}

func runModuleList(cmd *cobra.Command, args []string) error {
	c, err := newAPIClient()
	if err != nil {
		return err
	}
	var mods []domain.Module
	if err := c.call("GET", "/modules/", nil, &mods); err != nil {
		return err
	}
	for _, m := range mods {
		fmt.Printf("%s\t%s\t%s\n", m.Name, m.Version, m.Entry)
	}
	return nil
}

var moduleRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Rescan the modules directory",
	RunE:  runModuleRefresh,
}

func runModuleRefresh(cmd *cobra.Command, args []string) error {
	c, err := newAPIClient()
	if err != nil {
		return err
	}
	var mods []domain.Module
	if err := c.call("POST", "/modules/refresh", nil, &mods); err != nil {
		return err
	}
	fmt.Printf("discovered %d module(s)\n", len(mods))
	return nil
}
