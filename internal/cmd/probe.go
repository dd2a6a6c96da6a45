package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yoanbernabeu/sshinvoke/internal/probe"
	"github.com/yoanbernabeu/sshinvoke/internal/ssh"
)

var probeCmd = &cobra.Command{
	Use:   "probe <alias|user@host>",
	Short: "Wait until a host accepts SSH and runs a command",
	Long: `Connects to a host and runs a probe command until it exits 0.

Connection failures and non-zero exit codes are retried. Host key and
credential errors are not, since another attempt would fail the same way.

Examples:
  sshinvoke probe prod
  sshinvoke probe deploy@10.0.0.5 --retries 30 --wait 5m
  sshinvoke probe prod --command 'systemctl is-active nginx'`,
	Args: cobra.ExactArgs(1),
	RunE: runProbe,
}

var (
	probeConnect  connectOptions
	probeCommand  string
	probeRetries  int
	probeInterval time.Duration
	probeWait     time.Duration
)

func init() {
	rootCmd.AddCommand(probeCmd)

	addConnectFlags(probeCmd, &probeConnect)
	probeCmd.Flags().BoolVar(&probeConnect.PasswordStdin, "password-stdin", false, "Read the password from the first line of stdin")
	probeCmd.Flags().StringVar(&probeCommand, "command", probe.DefaultCommand, "Command that must exit 0")
	probeCmd.Flags().IntVar(&probeRetries, "retries", 5, "Maximum number of attempts")
	probeCmd.Flags().DurationVar(&probeInterval, "interval", 2*time.Second, "Pause between attempts")
	probeCmd.Flags().DurationVar(&probeWait, "wait", 30*time.Second, "Give up after this duration")
}

func runProbe(cmd *cobra.Command, args []string) error {
	if probeRetries < 1 {
		return fmt.Errorf("--retries must be at least 1")
	}
	if probeInterval < 0 || probeWait < 0 {
		return fmt.Errorf("--interval and --wait cannot be negative")
	}

	host, err := ResolveHost(globalCfg, args[0], probeConnect, os.Getenv)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	interactive := IsInteractive() && !probeConnect.PasswordStdin
	creds, err := passwordCredentials(host.User, probeConnect, cmd.InOrStdin(), os.Getenv, interactive).Credentials(ctx)
	if err != nil {
		return err
	}

	connectTimeout := globalCfg.Defaults.ConnectTimeout
	if probeConnect.ConnectTimeout > 0 {
		connectTimeout = probeConnect.ConnectTimeout
	}

	p := probe.NewProber(newRunner(globalCfg), ssh.Invocation{
		Target:         host.Target,
		Trust:          host.Trust,
		ConnectTimeout: connectTimeout,
		Credentials:    creds,
		Request: ssh.ExecutionRequest{
			Command: probeCommand,
			Timeout: globalCfg.Defaults.ExecTimeout,
		},
	})
	p.SetRetries(probeRetries)
	p.SetInterval(probeInterval)
	p.SetTimeout(probeWait)

	PrintVerbose("Probing %s@%s", host.User, host.Target)
	return probeRemote(ctx, p, fmt.Sprintf("%s@%s", host.User, host.Target), cmd.OutOrStdout())
}

// probeRemote runs the probe and reports its outcome
func probeRemote(ctx context.Context, p *probe.Prober, name string, w io.Writer) error {
	result, err := p.Check(ctx)
	if err != nil {
		PrintError("%s: %v", name, err)
		return exitErrorFor(nil, err)
	}

	if !result.Ready {
		PrintError("%s is not ready after %d attempt(s): %s", name, result.Attempts, result.Message)
		return &ExitError{Code: 1}
	}

	fmt.Fprintf(w, "%s %s is ready (%d attempt(s), %s)\n",
		successStyle.Render("✓"), name, result.Attempts, result.ResponseTime.Round(time.Millisecond))
	return nil
}
