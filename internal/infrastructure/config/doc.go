// Package config handles loading and validating lightsync configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// The sync section replaces the interactive lamp picker: the operator
// chooses "single" (with a 1-based source_index) or "all" before the
// mirror loop starts.
//
// Security Considerations:
//   - Sensitive values (MQTT password, InfluxDB token) should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Sync.Mode)
package config
