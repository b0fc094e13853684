package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"syscall"

	"github.com/etnz/rebalance/logger"
)

// RunExtension attempts to find and execute an external rbl-<subcommand> binary.
// It returns (true, exitCode) if an extension was found and executed,
// and (false, 0) if no extension was found or executed.
// Global flags are passed as environment variables.
func RunExtension(ctx context.Context, subcommand string, args []string) (bool, int) {
	log := logger.FromContext(ctx)
	externalCmdName := "rbl-" + subcommand

	lp, err := exec.LookPath(externalCmdName)
	if err != nil {
		log.Debugw("external command not found", "command", externalCmdName, "error", err)
		return false, 0
	}

	cmd := exec.CommandContext(ctx, lp, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	cmd.Env = os.Environ()
	cmd.Env = append(cmd.Env, envConfig+"="+*configFile)
	if *currencyFlag != "" {
		cmd.Env = append(cmd.Env, envCurrency+"="+*currencyFlag)
	}
	if *providerFlag != "" {
		cmd.Env = append(cmd.Env, envProvider+"="+*providerFlag)
	}
	cmd.Env = append(cmd.Env, envVerbose+"="+strconv.FormatBool(*Verbose))

	if err := cmd.Run(); err != nil {
		if exitError, ok := err.(*exec.ExitError); ok {
			if status, ok := exitError.Sys().(syscall.WaitStatus); ok {
				return true, status.ExitStatus()
			}
		}
		fmt.Fprintf(os.Stderr, "Error executing external command %q: %v\n", externalCmdName, err)
		return true, 1
	}
	return true, 0
}
