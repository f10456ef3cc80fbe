// Package cli defines the CLI flag configuration and parsing for the
// launcher server binary, including flags for the config file path,
// cluster access, and TLS settings.
package cli
