// Package logging provides structured logging for SmartEgg Core.
//
// It wraps log/slog so every component logs the same way:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Component("ws").Info("client connected", "user_id", uid)
//
// Never log passwords, JWTs, the sensor API key or the Telegram token.
package logging
