package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yoanbernabeu/sshinvoke/internal/config"
	"github.com/yoanbernabeu/sshinvoke/internal/envfile"
	"github.com/yoanbernabeu/sshinvoke/internal/security"
	"github.com/yoanbernabeu/sshinvoke/internal/ssh"
)

// Exit codes for failures that have no remote exit status
const (
	exitCodeTimeout = 124
	exitCodeFailure = 255
)

var runCmd = &cobra.Command{
	Use:   "run [alias|user@host] [-- command...]",
	Short: "Run a command on a remote host",
	Long: `Runs one command on a remote host over SSH and streams its output.

The host is a configured alias or [user@]host. Authentication uses a password
read from --password-stdin, from SSHINVOKE_PASSWORD, or from an interactive
prompt. The server key is checked against --host-key, --known-hosts, the
alias configuration or ~/.ssh/known_hosts, in that order.

With --timeout the remote process is killed once the deadline is reached and
the command fails, even if it already produced output.

The exit code is the remote exit status. It is 124 after a timeout and 255
when the command could not be run.

Examples:
  sshinvoke run prod -- uptime
  sshinvoke run deploy@10.0.0.5 -t 10m -- ./backup.sh --full
  sshinvoke run prod --env-file .env.prod -e APP_ENV=prod -- ./migrate.sh
  echo "$PASS" | sshinvoke run prod --password-stdin --quiet -- cat /etc/os-release`,
	RunE: runRun,
}

var (
	runConnect    connectOptions
	runTimeout    time.Duration
	runStreamOnly bool
	runQuiet      bool
	runMaxOutput  int64
	runWorkdir    string
	runEnv        []string
	runEnvFiles   []string
)

// newRunner builds the runner used by run; replaced in tests
var newRunner = func(cfg *config.GlobalConfig) ssh.Runner {
	return ssh.NewInvoker(ssh.WithCloseGrace(cfg.Defaults.CloseGrace))
}

func init() {
	rootCmd.AddCommand(runCmd)

	addConnectFlags(runCmd, &runConnect)
	runCmd.Flags().BoolVar(&runConnect.PasswordStdin, "password-stdin", false, "Read the password from the first line of stdin")
	runCmd.Flags().DurationVarP(&runTimeout, "timeout", "t", 0, "Kill the remote command after this duration (default from config, 0 disables)")
	runCmd.Flags().BoolVar(&runStreamOnly, "stream-only", false, "Stream output without accumulating it")
	runCmd.Flags().BoolVarP(&runQuiet, "quiet", "q", false, "Do not stream output; print it once the command finished")
	runCmd.Flags().Int64Var(&runMaxOutput, "max-output", 0, "Fail when accumulated output exceeds this many bytes (0 = unlimited)")
	runCmd.Flags().StringVar(&runWorkdir, "workdir", "", "Remote directory to run the command in")
	runCmd.Flags().StringArrayVarP(&runEnv, "env", "e", nil, "Remote environment variable KEY=VALUE (repeatable)")
	runCmd.Flags().StringArrayVar(&runEnvFiles, "env-file", nil, "Read remote environment variables from a .env file (repeatable)")
}

// addConnectFlags registers the connection flags shared by run and hostkey
func addConnectFlags(cmd *cobra.Command, opts *connectOptions) {
	cmd.Flags().StringVarP(&opts.User, "user", "u", "", "Remote user (default from alias or config)")
	cmd.Flags().IntVarP(&opts.Port, "port", "p", 0, "SSH port (default from alias or config)")
	cmd.Flags().StringVar(&opts.HostKey, "host-key", "", "Pinned server key in authorized_keys format")
	cmd.Flags().StringVar(&opts.KnownHosts, "known-hosts", "", "known_hosts file used to check the server key")
	cmd.Flags().BoolVar(&opts.Insecure, "insecure", false, "Skip host key verification (vulnerable to MITM)")
	cmd.Flags().DurationVar(&opts.ConnectTimeout, "connect-timeout", 0, "Connection and handshake timeout (default from config)")
}

// splitRunArgs separates the host from the command, with or without "--"
func splitRunArgs(args []string, dash int) (host, command string) {
	switch {
	case dash == 0:
		return "", strings.Join(args, " ")
	case dash > 0:
		return args[0], strings.Join(args[dash:], " ")
	case len(args) > 0:
		return args[0], strings.Join(args[1:], " ")
	default:
		return "", ""
	}
}

// buildRemoteCommand prefixes command with the environment exports and the
// change of directory
func buildRemoteCommand(command, workdir string, envFiles, env []string) (string, error) {
	if workdir != "" {
		command = "cd " + security.ShellEscape(workdir) + " && " + command
	}
	vars, err := envfile.Load(envFiles, env)
	if err != nil {
		return "", err
	}
	return envfile.ExportPrefix(vars) + command, nil
}

// runOptions is everything runRemote needs, resolved from flags and config
type runOptions struct {
	Host        *RemoteHost
	Credentials ssh.CredentialsProvider
	Request     ssh.ExecutionRequest
	Connect     time.Duration
	Quiet       bool
}

func runRun(cmd *cobra.Command, args []string) error {
	hostSpec, command := splitRunArgs(args, cmd.ArgsLenAtDash())
	interactive := IsInteractive() && !runConnect.PasswordStdin

	if hostSpec == "" {
		if !interactive {
			return fmt.Errorf("no host given")
		}
		spec, err := promptHost(globalCfg)
		if err != nil {
			return err
		}
		hostSpec = spec
	}
	if command == "" {
		if !interactive {
			return fmt.Errorf("no command given")
		}
		c, err := PromptString("Command", "")
		if err != nil {
			return err
		}
		command = c
	}
	if strings.TrimSpace(command) == "" {
		return fmt.Errorf("no command given")
	}

	if runQuiet && runStreamOnly {
		return fmt.Errorf("--quiet and --stream-only are mutually exclusive")
	}
	if runMaxOutput < 0 {
		return fmt.Errorf("--max-output cannot be negative")
	}

	host, err := ResolveHost(globalCfg, hostSpec, runConnect, os.Getenv)
	if err != nil {
		return err
	}

	command, err = buildRemoteCommand(command, runWorkdir, runEnvFiles, runEnv)
	if err != nil {
		return err
	}

	timeout := globalCfg.Defaults.ExecTimeout
	if cmd.Flags().Changed("timeout") {
		timeout = runTimeout
	}
	if timeout < 0 {
		return fmt.Errorf("--timeout cannot be negative")
	}

	connectTimeout := globalCfg.Defaults.ConnectTimeout
	if runConnect.ConnectTimeout > 0 {
		connectTimeout = runConnect.ConnectTimeout
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := runOptions{
		Host:        host,
		Credentials: passwordCredentials(host.User, runConnect, cmd.InOrStdin(), os.Getenv, interactive),
		Request: ssh.ExecutionRequest{
			Command:    command,
			Timeout:    timeout,
			WantResult: !runStreamOnly,
			MaxOutput:  runMaxOutput,
		},
		Connect: connectTimeout,
		Quiet:   runQuiet,
	}

	return runRemote(ctx, newRunner(globalCfg), opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// runRemote runs one invocation, writes its output and summary, and maps
// the outcome to an ExitError when the process should not exit 0
func runRemote(ctx context.Context, runner ssh.Runner, opts runOptions, stdout, stderr io.Writer) error {
	creds, err := opts.Credentials.Credentials(ctx)
	if err != nil {
		return err
	}

	in := ssh.Invocation{
		Target:         opts.Host.Target,
		Trust:          opts.Host.Trust,
		ConnectTimeout: opts.Connect,
		Credentials:    creds,
		Request:        opts.Request,
	}
	if !opts.Quiet {
		in.OnOutput = func(ev ssh.StreamEvent) {
			w := stdout
			if ev.Kind == ssh.Stderr {
				w = stderr
			}
			_, _ = w.Write(ev.Data)
		}
	}

	PrintVerbose("Connecting to %s@%s", opts.Host.User, opts.Host.Target)
	PrintVerboseCommand(opts.Request.Command)

	start := time.Now()
	result, runErr := runner.Run(ctx, in)
	elapsed := time.Since(start)

	if opts.Quiet && result != nil {
		_, _ = stdout.Write(result.Stdout)
		_, _ = stderr.Write(result.Stderr)
	}

	if IsVerbose() || runErr != nil || killedBySignal(result) {
		fmt.Fprintln(stderr, renderSummary(runSummary{
			Host:     fmt.Sprintf("%s@%s", opts.Host.User, opts.Host.Target),
			Command:  security.SanitizeCommandForLog(opts.Request.Command),
			Duration: elapsed,
			Result:   result,
			Err:      runErr,
		}))
	}

	return exitErrorFor(result, runErr)
}

// exitErrorFor maps an outcome to the process exit code
func exitErrorFor(result *ssh.Result, err error) error {
	switch {
	case err == nil && result != nil && result.ExitStatus != nil && *result.ExitStatus != 0:
		return &ExitError{Code: *result.ExitStatus}
	case err == nil && killedBySignal(result):
		return &ExitError{Code: exitCodeFailure}
	case err == nil:
		return nil
	case ssh.IsTimeout(err):
		return &ExitError{Code: exitCodeTimeout}
	case errors.Is(err, context.Canceled):
		return &ExitError{Code: 130}
	default:
		return &ExitError{Code: exitCodeFailure}
	}
}

// killedBySignal reports whether the remote process died from a signal
// without reporting an exit status
func killedBySignal(result *ssh.Result) bool {
	return result != nil && result.ExitStatus == nil && result.ExitSignal != ""
}

// promptHost lets the user pick a configured alias or type a host
func promptHost(cfg *config.GlobalConfig) (string, error) {
	aliases := cfg.ListHosts()
	if len(aliases) > 0 {
		if i := PromptSelect("Select a host (or 0 to type one):", aliases); i >= 0 {
			return aliases[i], nil
		}
	}
	host, err := PromptString("Host ([user@]host)", "")
	if err != nil {
		return "", err
	}
	if host == "" {
		return "", fmt.Errorf("no host given")
	}
	return host, nil
}
