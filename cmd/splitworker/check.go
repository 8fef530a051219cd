package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/wjixiang/aikb/internal/queue"
	"github.com/wjixiang/aikb/internal/store"
)

// runCheck verifies that the broker queues exist and storage is reachable,
// using the same configuration the run command would. Intended for
// deployment smoke tests.
func runCheck(args []string) int {
	fs := flag.NewFlagSet("check", flag.ExitOnError)

	configPath := fs.String("config", "", "Path to YAML config file (optional)")
	timeout := fs.Duration("timeout", 15*time.Second, "Overall check timeout")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: splitworker check [options]

Verify that all broker queues exist and object storage is accessible.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}

	cfg, code := loadConfig(*configPath)
	if code != ExitSuccess {
		return code
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client := queue.NewClient(queue.Config{URL: cfg.Broker.AMQPURL()})
	if err := client.Connect(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Broker: FAIL (%v)\n", err)
		return ExitBrokerError
	}
	client.Close()
	fmt.Printf("Broker: OK (%s:%d", cfg.Broker.Host, cfg.Broker.Port)
	for _, q := range client.Queues().Names() {
		fmt.Printf(" %s", q)
	}
	fmt.Println(")")

	st, err := store.Open(ctx, store.Options{
		BucketURL:     cfg.Storage.BucketURL,
		PublicBaseURL: cfg.Storage.PublicBaseURL,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Storage: FAIL (%v)\n", err)
		return ExitStorageError
	}
	defer st.Close()

	if st.Standin() {
		fmt.Println("Storage: SKIP (no bucket configured)")
		return ExitSuccess
	}
	if !st.HealthCheck(ctx) {
		fmt.Fprintln(os.Stderr, "Storage: FAIL (bucket not accessible)")
		return ExitStorageError
	}
	fmt.Printf("Storage: OK (%s)\n", cfg.Storage.BucketURL)

	return ExitSuccess
}
