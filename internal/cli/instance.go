package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/saba-chan/saba-core/internal/domain"
)

func init() {
	instanceCmd.AddCommand(instanceListCmd, instanceCreateCmd, instanceRmCmd)
	instanceCreateCmd.Flags().StringVar(&createModule, "module", "", "module name (required)")
	instanceCreateCmd.Flags().StringVar(&createExecutable, "executable", "", "server executable path")
	instanceCreateCmd.Flags().IntVar(&createPort, "port", 0, "game port")
	instanceCreateCmd.MarkFlagRequired("module")
	rootCmd.AddCommand(instanceCmd)
}

var instanceCmd = &cobra.Command{
	Use:     "instance",
	Aliases: []string{"inst"},
	Short:   "Manage configured server instances",
}

var instanceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured instances",
	RunE:  runInstanceList,
}

func runInstanceList(cmd *cobra.Command, args []string) error {
	c, err := newAPIClient()
	if err != nil {
		return err
	}
	var instances []domain.Instance
	if err := c.call("GET", "/instances/", nil, &instances); err != nil {
		return err
	}
	if len(instances) == 0 {
		fmt.Println("no instances configured")
		return nil
	}
	for _, inst := range instances {
		fmt.Printf("%s\t%s\t%s\n", inst.ID, inst.Name, inst.ModuleName)
	}
	return nil
}

var (
	createModule     string
	createExecutable string
	createPort       int
)

var instanceCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a new server instance",
	Args:  cobra.ExactArgs(1),
	RunE:  runInstanceCreate,
}

func runInstanceCreate(cmd *cobra.Command, args []string) error {
	c, err := newAPIClient()
	if err != nil {
		return err
	}
	req := domain.Instance{
		Name:           args[0],
		ModuleName:     createModule,
		ExecutablePath: createExecutable,
		Port:           createPort,
	}
	var created domain.Instance
	if err := c.call("POST", "/instances/", req, &created); err != nil {
		return err
	}
	fmt.Printf("created %s (%s)\n", created.Name, created.ID)
	return nil
}

var instanceRmCmd = &cobra.Command{
	Use:   "rm ID",
	Short: "Remove a server instance",
	Args:  cobra.ExactArgs(1),
	RunE:  runInstanceRm,
}

func runInstanceRm(cmd *cobra.Command, args []string) error {
	c, err := newAPIClient()
	if err != nil {
		return err
	}
	if err := c.call("DELETE", "/instances/"+args[0], nil, nil); err != nil {
		return err
	}
	fmt.Printf("removed %s\n", args[0])
	return nil
}

// resolveInstanceID looks up an instance by name or ID (ID takes
// precedence when both happen to collide, which the store's uniqueness
// guarantee makes impossible in practice).
func resolveInstanceID(c *apiClient, nameOrID string) (string, error) {
	var instances []domain.Instance
	if err := c.call("GET", "/instances/", nil, &instances); err != nil {
		return "", err
	}
	for _, inst := range instances {
		if inst.ID == nameOrID {
			return inst.ID, nil
		}
	}
	for _, inst := range instances {
		if inst.Name == nameOrID {
			return inst.ID, nil
		}
	}
	return "", fmt.Errorf("no instance named or identified by %q", nameOrID)
}
