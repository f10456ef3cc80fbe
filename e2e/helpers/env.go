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

import "os"

// Environment variables understood by the e2e suite.
const (
	envE2E       = "E2E_TEST"
	envNamespace = "E2E_NAMESPACE"
	envAPIURL    = "SPARK_LAUNCHER_API_URL"
	envAPIToken  = "SPARK_LAUNCHER_API_TOKEN"
)

// IsE2EEnabled gates the whole suite, nothing runs unless E2E_TEST=true.
func IsE2EEnabled() bool {
	return os.Getenv(envE2E) == "true"
}

// GetTestNamespace returns the namespace the suite submits into.
func GetTestNamespace() string {
	return envOr(envNamespace, "default")
}

// GetAPIBaseURL points at the launcher under test. The default matches
// a kubectl port-forward to the spark-launcher service.
func GetAPIBaseURL() string {
	return envOr(envAPIURL, "http://localhost:8080")
}

// GetAPIToken returns the bearer token for the API, empty when the
// deployment under test runs without an authorization server.
func GetAPIToken() string {
	return os.Getenv(envAPIToken)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
