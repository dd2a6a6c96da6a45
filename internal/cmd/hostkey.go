package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/yoanbernabeu/sshinvoke/internal/config"
	"github.com/yoanbernabeu/sshinvoke/internal/ssh"
)

var hostkeyCmd = &cobra.Command{
	Use:   "hostkey <alias|host>",
	Short: "Print the host key of a server",
	Long: `Connects to a server, reads its host key and prints it in authorized_keys
format, ready to be pinned with --host-key. No authentication is attempted.

Examples:
  sshinvoke hostkey my-vps.com
  sshinvoke hostkey my-vps.com -p 2222 --save prod`,
	Args: cobra.ExactArgs(1),
	RunE: runHostkey,
}

var (
	hostkeyPort    int
	hostkeyTimeout time.Duration
	hostkeySave    string
)

// fetchHostKey reads a server key; replaced in tests
var fetchHostKey = ssh.FetchHostKey

func init() {
	rootCmd.AddCommand(hostkeyCmd)

	hostkeyCmd.Flags().IntVarP(&hostkeyPort, "port", "p", 0, "SSH port (default from alias or config)")
	hostkeyCmd.Flags().DurationVar(&hostkeyTimeout, "connect-timeout", 0, "Connection timeout (default from config)")
	hostkeyCmd.Flags().StringVar(&hostkeySave, "save", "", "Save the host under this alias with the key pinned")
}

func runHostkey(cmd *cobra.Command, args []string) error {
	opts := connectOptions{Port: hostkeyPort, Insecure: true}
	host, err := ResolveHost(globalCfg, args[0], opts, func(string) string { return "" })
	if err != nil {
		return err
	}

	timeout := globalCfg.Defaults.ConnectTimeout
	if hostkeyTimeout > 0 {
		timeout = hostkeyTimeout
	}

	info, err := printHostKey(cmd.Context(), host.Target, timeout, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	if hostkeySave == "" {
		return nil
	}
	return saveHostWithKey(globalCfg, hostkeySave, host, info.AuthorizedLine)
}

// printHostKey fetches the key of target and writes it to w
func printHostKey(ctx context.Context, target ssh.Target, timeout time.Duration, w io.Writer) (*ssh.HostKeyInfo, error) {
	PrintVerbose("Fetching host key from %s", target)
	info, err := fetchHostKey(ctx, target, timeout)
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(os.Stderr, "%s %s\n", mutedStyle.Render(info.Type), info.Fingerprint)
	fmt.Fprintln(w, info.AuthorizedLine)
	return info, nil
}

// saveHostWithKey stores the host under alias with its key pinned
func saveHostWithKey(cfg *config.GlobalConfig, alias string, host *RemoteHost, key string) error {
	hostCfg := config.HostConfig{
		Host:    host.Target.Host,
		User:    host.User,
		Port:    host.Target.Port,
		HostKey: key,
	}
	if err := cfg.AddHost(alias, hostCfg); err != nil {
		return err
	}
	if err := saveGlobalConfig(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	PrintSuccess("Saved host '%s' with pinned key", alias)
	return nil
}
