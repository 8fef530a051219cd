// Package config defines configuration for the split worker.
//
// Configuration can be provided via:
//   - Environment variables (the deployment's existing names)
//   - YAML configuration file
//   - Command-line flags (applied by cmd/splitworker)
//
// # Structure
//
//	type Config struct {
//	    Broker  BrokerConfig  // host/port/credentials/vhost or full URL
//	    Storage StorageConfig // bucket URL, public base URL
//	    Split   SplitConfig   // default/min/max part size
//	    Worker  WorkerConfig  // concurrency, retries, temp dir, timeouts
//	}
package config
