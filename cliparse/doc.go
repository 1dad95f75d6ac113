// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

	if err := cliparse.LoadDotEnv(); err != nil {
		log.Fatal(err)
	}
	cfg, err := cliparse.ParseFlags(os.Args[1:])

LoadDotEnv reads .env into the environment first; variables that are
already set are left alone.

# Config Fields

  - Port: Server listen port (default: 3318)
  - DatabaseType: sqlite (default), postgres or memory
  - DatabaseURL: connection string or sqlite file (not needed for memory)
  - CatalogURL: remote catalog base URL; the built-in catalog is used when empty
  - StoreTimeout: deadline for each storage operation (default: 5s)
  - ShutdownTimeout: drain period on SIGINT/SIGTERM (default: 10s)
  - Debug: debug-level logging

# CLI Flags and Environment Variables

	-p                 PORT
	-t                 DATABASE_TYPE
	-d                 DATABASE_URL
	-catalog           CATALOG_URL
	-store-timeout     STORE_TIMEOUT
	-shutdown-timeout  SHUTDOWN_TIMEOUT
	-debug             DEBUG

CLI flags take precedence over environment variables.
*/
package cliparse
