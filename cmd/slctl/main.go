package main

import (
	"os"

	slctlcmd "github.com/telekom/k8s-spark-launcher/pkg/slctl/cmd"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	root := slctlcmd.NewRootCommand(slctlcmd.DefaultConfig())
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		return 1
	}
	return 0
}
