package cmd

import (
	"github.com/telekom/k8s-spark-launcher/pkg/slctl/client"
)

func buildClient(rt *runtimeState) (*client.Client, error) {
	options := []client.Option{
		client.WithServer(rt.serverOverride),
		client.WithToken(rt.tokenOverride),
		client.WithTLSConfig(rt.caFile, rt.insecureSkipTLSVerify),
	}
	if rt.verbose {
		options = append(options, client.WithDebug(true))
	}
	return client.New(options...)
}
