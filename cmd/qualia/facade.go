package main

import "github.com/qualia-db/qualia/internal/database"

// configOverride is "" unless the user passed --config explicitly, so
// Open falls back to its own per-mode default otherwise (the bundled
// `state` file for a directory database, the global config path for a
// single `.qualia` file).
func configOverride() string {
	if rootCmd.PersistentFlags().Changed("config") {
		return flagConfigPath
	}
	return ""
}

func openRW() (*database.Facade, error) {
	return database.Open(flagDBPath, false, configOverride())
}

func openRO() (*database.Facade, error) {
	return database.Open(flagDBPath, true, configOverride())
}
