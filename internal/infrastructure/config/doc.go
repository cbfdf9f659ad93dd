// Package config handles loading and validating SmartEgg Core configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with SMARTEGG_* environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - The JWT secret, the sensor API key and the Telegram token should be
//     set via environment variables, never committed in config.yaml
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.API.Port)
package config
