package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/saba-chan/saba-core/internal/domain"
)

func init() {
	serverCmd.AddCommand(serverStartCmd, serverStopCmd, serverStatusCmd)
	serverStopCmd.Flags().BoolVar(&serverStopForce, "force", false, "force-terminate instead of a graceful stop")
	rootCmd.AddCommand(serverCmd)
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start, stop, and check the status of server instances",
}

var serverStartCmd = &cobra.Command{
	Use:   "start NAME",
	Short: "Start a configured instance",
	Args:  cobra.ExactArgs(1),
	RunE:  runServerStart,
}

func runServerStart(cmd *cobra.Command, args []string) error {
	c, err := newAPIClient()
	if err != nil {
		return err
	}
	id, err := resolveInstanceID(c, args[0])
	if err != nil {
		return err
	}
	var res domain.AdapterResult
	if err := c.call("POST", "/instances/"+id+"/start", nil, &res); err != nil {
		return err
	}
	fmt.Printf("start: success=%v status=%s pid=%d\n", res.Success, res.Status, res.PID)
	return nil
}

var serverStopForce bool

var serverStopCmd = &cobra.Command{
	Use:   "stop NAME",
	Short: "Stop a running instance",
	Args:  cobra.ExactArgs(1),
	RunE:  runServerStop,
}

func runServerStop(cmd *cobra.Command, args []string) error {
	c, err := newAPIClient()
	if err != nil {
		return err
	}
	id, err := resolveInstanceID(c, args[0])
	if err != nil {
		return err
	}
	var res domain.AdapterResult
	if err := c.call("POST", "/instances/"+id+"/stop", map[string]any{"force": serverStopForce}, &res); err != nil {
		return err
	}
	fmt.Printf("stop: success=%v status=%s\n", res.Success, res.Status)
	return nil
}

var serverStatusCmd = &cobra.Command{
	Use:   "status NAME",
	Short: "Report an instance's live status",
	Args:  cobra.ExactArgs(1),
	RunE:  runServerStatus,
}

func runServerStatus(cmd *cobra.Command, args []string) error {
	c, err := newAPIClient()
	if err != nil {
		return err
	}
	id, err := resolveInstanceID(c, args[0])
	if err != nil {
		return err
	}
	var res domain.AdapterResult
	if err := c.call("GET", "/instances/"+id+"/status", nil, &res); err != nil {
		return err
	}
	fmt.Printf("%s: status=%s pid=%d\n", args[0], res.Status, res.PID)
	return nil
}
