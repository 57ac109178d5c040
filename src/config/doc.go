// Package config defines the configuration of a relayfold process.
//
// Whether relayfold is embedded in Go code or started from the command line,
// options travel in the Config object defined here. On top of them,
// relayfold relies on a data directory, Config.DataDir, where it looks for a
// few additional files:
//
//	priv_key       // (optional) the session user's private key, hex encoded (cf. relayfold keygen).
//	relays.json    // (optional) the relays to read from, with read/write flags.
//	relayfold.toml // (optional) the configuration file; .yaml and .json also work.
package config
