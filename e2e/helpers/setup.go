/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package helpers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	ctrlclient "sigs.k8s.io/controller-runtime/pkg/client"
	ctrlconfig "sigs.k8s.io/controller-runtime/pkg/client/config"

	slclient "github.com/telekom/k8s-spark-launcher/pkg/slctl/client"
	"github.com/telekom/k8s-spark-launcher/pkg/utils"
)

const (
	// WaitTimeout bounds how long a test waits for submitted resources to
	// become ready.
	WaitTimeout = 2 * time.Minute
	// PollInterval is the polling cadence for readiness checks.
	PollInterval = 2 * time.Second
)

// TestSetup carries the clients a single E2E test needs.
type TestSetup struct {
	Ctx       context.Context
	Kube      ctrlclient.Client
	API       *slclient.Client
	Namespace string
}

// SetupTest skips the test unless E2E_TEST=true and builds the Kubernetes
// and launcher API clients from the environment.
func SetupTest(t *testing.T) *TestSetup {
	t.Helper()

	if !IsE2EEnabled() {
		t.Skip("Skipping E2E test. Set E2E_TEST=true to run.")
	}

	ctx, cancel := context.WithTimeout(context.Background(), WaitTimeout)
	t.Cleanup(cancel)

	return &TestSetup{
		Ctx:       ctx,
		Kube:      GetClient(t),
		API:       GetAPIClient(t),
		Namespace: GetTestNamespace(),
	}
}

// GetClient builds a controller-runtime client from the ambient kubeconfig.
func GetClient(t *testing.T) ctrlclient.Client {
	t.Helper()

	cfg, err := ctrlconfig.GetConfig()
	require.NoError(t, err, "loading kubeconfig")

	scheme, err := utils.CreateScheme()
	require.NoError(t, err, "creating scheme")

	cli, err := ctrlclient.New(cfg, ctrlclient.Options{Scheme: scheme})
	require.NoError(t, err, "creating kubernetes client")
	return cli
}

// GetAPIClient builds a launcher API client from the environment.
func GetAPIClient(t *testing.T) *slclient.Client {
	t.Helper()

	opts := []slclient.Option{slclient.WithServer(GetAPIBaseURL())}
	if token := GetAPIToken(); token != "" {
		opts = append(opts, slclient.WithToken(token))
	}
	cli, err := slclient.New(opts...)
	require.NoError(t, err, "creating launcher API client")
	return cli
}
