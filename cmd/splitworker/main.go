package main

import (
	"fmt"
	"os"
)

// Exit codes
const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitInvalidArgs  = 2
	ExitConfigError  = 3
	ExitBrokerError  = 4
	ExitStorageError = 5
	ExitSplitError   = 6
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return ExitInvalidArgs
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "run":
		return runServe(cmdArgs)
	case "split":
		return runSplit(cmdArgs)
	case "check":
		return runCheck(cmdArgs)
	case "help", "-h", "--help":
		printUsage()
		return ExitSuccess
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		return ExitInvalidArgs
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: splitworker <command> [options]

Commands:
  run    Consume split requests from the broker and process them
  split  Split a local PDF into parts without a broker
  check  Verify broker queues and storage are reachable

Run 'splitworker <command> -h' for command-specific help.`)
}
