package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/yoanbernabeu/sshinvoke/internal/config"
)

var hostsCmd = &cobra.Command{
	Use:   "hosts",
	Short: "Manage host aliases",
	Long:  `Commands to add, list, and remove host aliases in the global configuration.`,
}

var hostsAddCmd = &cobra.Command{
	Use:   "add <alias> <[user@]host>",
	Short: "Add a new host alias",
	Long: `Adds a new host alias to the global configuration.

Example:
  sshinvoke hosts add production deploy@my-vps.com
  sshinvoke hosts add staging staging.example.com --port 2222 --host-key "ssh-ed25519 AAAA..."`,
	Args: cobra.ExactArgs(2),
	RunE: runHostsAdd,
}

var hostsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured hosts",
	RunE:  runHostsList,
}

var hostsRemoveCmd = &cobra.Command{
	Use:   "remove <alias>",
	Short: "Remove a host alias",
	Args:  cobra.ExactArgs(1),
	RunE:  runHostsRemove,
}

var hostsAddFlags config.HostConfig

func init() {
	rootCmd.AddCommand(hostsCmd)
	hostsCmd.AddCommand(hostsAddCmd)
	hostsCmd.AddCommand(hostsListCmd)
	hostsCmd.AddCommand(hostsRemoveCmd)

	hostsAddCmd.Flags().IntVarP(&hostsAddFlags.Port, "port", "p", 0, "SSH port (default from config)")
	hostsAddCmd.Flags().StringVar(&hostsAddFlags.HostKey, "host-key", "", "Pinned server key in authorized_keys format")
	hostsAddCmd.Flags().StringVar(&hostsAddFlags.KnownHosts, "known-hosts", "", "known_hosts file used for this host")
	hostsAddCmd.Flags().BoolVar(&hostsAddFlags.Insecure, "insecure", false, "Skip host key verification for this host")
}

func runHostsAdd(cmd *cobra.Command, args []string) error {
	alias := args[0]

	hostCfg := hostsAddFlags
	hostCfg.User, hostCfg.Host = parseHostSpec(args[1])

	if err := globalCfg.AddHost(alias, hostCfg); err != nil {
		return fmt.Errorf("invalid host configuration: %w", err)
	}

	if err := saveGlobalConfig(globalCfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	PrintSuccess("Added host '%s' (%s)", alias, args[1])
	if hostCfg.HostKey == "" && !hostCfg.Insecure {
		PrintInfo("Pin its key with: sshinvoke hostkey %s --save <alias>", hostCfg.Host)
	}
	return nil
}

func runHostsList(cmd *cobra.Command, args []string) error {
	printHosts(cmd.OutOrStdout(), globalCfg)
	return nil
}

// printHosts writes the configured aliases with their settings
func printHosts(w io.Writer, cfg *config.GlobalConfig) {
	aliases := cfg.ListHosts()
	if len(aliases) == 0 {
		fmt.Fprintln(w, "No hosts configured")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Add a host with:")
		fmt.Fprintln(w, "  sshinvoke hosts add <alias> <[user@]host>")
		return
	}

	fmt.Fprintln(w, "Configured hosts:")
	fmt.Fprintln(w)
	for _, alias := range aliases {
		host := cfg.Resolve(alias)
		fmt.Fprintf(w, "  %s\n", alias)
		fmt.Fprintf(w, "    Host: %s@%s:%d\n", host.User, host.Host, host.Port)
		switch {
		case host.HostKey != "":
			fmt.Fprintf(w, "    Key:  %s\n", truncate(host.HostKey, 48))
		case host.Insecure:
			fmt.Fprintln(w, "    Key:  not verified")
		case host.KnownHosts != "":
			fmt.Fprintf(w, "    Key:  %s\n", host.KnownHosts)
		}
		fmt.Fprintln(w)
	}
}

func runHostsRemove(cmd *cobra.Command, args []string) error {
	name := args[0]

	if err := globalCfg.RemoveHost(name); err != nil {
		return err
	}

	if err := saveGlobalConfig(globalCfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	PrintSuccess("Removed host '%s'", name)
	return nil
}
