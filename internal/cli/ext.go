package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	extCmd.AddCommand(extListCmd, extEnableCmd, extDisableCmd)
	rootCmd.AddCommand(extCmd)
}

var extCmd = &cobra.Command{
	Use:   "ext",
	Short: "Manage dynamically mountable extensions",
}

type extensionSummary struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Version string `json:"version"`
	Enabled bool   `json:"enabled"`
}

var extListCmd = &cobra.Command{
	Use:   "list",
	Short: "List discovered extensions",
	RunE:  runExtList,
}

func runExtList(cmd *cobra.Command, args []string) error {
	c, err := newAPIClient()
	if err != nil {
		return err
	}
	var exts []extensionSummary
	if err := c.call("GET", "/extensions/", nil, &exts); err != nil {
		return err
	}
	for _, e := range exts {
		fmt.Printf("%s\t%s\t%s\tenabled=%v\n", e.ID, e.Name, e.Version, e.Enabled)
	}
	return nil
}

var extEnableCmd = &cobra.Command{
	Use:   "enable ID",
	Short: "Enable a discovered extension",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtEnable,
}

func runExtEnable(cmd *cobra.Command, args []string) error {
	c, err := newAPIClient()
	if err != nil {
		return err
	}
	if err := c.call("POST", "/extensions/"+args[0]+"/enable", nil, nil); err != nil {
		return err
	}
	fmt.Printf("enabled %s\n", args[0])
	return nil
}

var extDisableCmd = &cobra.Command{
	Use:   "disable ID",
	Short: "Disable an enabled extension",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtDisable,
}

func runExtDisable(cmd *cobra.Command, args []string) error {
	c, err := newAPIClient()
	if err != nil {
		return err
	}
	if err := c.call("POST", "/extensions/"+args[0]+"/disable", nil, nil); err != nil {
		return err
	}
	fmt.Printf("disabled %s\n", args[0])
	return nil
}
