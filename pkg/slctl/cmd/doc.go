// Package cmd implements the cobra command tree for the slctl CLI, including
// subcommands for submitting, rendering, inspecting, and deleting Spark
// driver resources, plus version and shell completion.
package cmd
