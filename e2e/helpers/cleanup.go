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

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	ctrlclient "sigs.k8s.io/controller-runtime/pkg/client"

	slclient "github.com/telekom/k8s-spark-launcher/pkg/slctl/client"
)

// CleanupSubmission deletes the resources a submission created, tolerating
// resources that are already gone. Registered via t.Cleanup so tests leave
// the cluster clean even on failure.
func CleanupSubmission(t *testing.T, kube ctrlclient.Client, sub *slclient.Submission) {
	t.Helper()

	t.Cleanup(func() {
		ctx := context.Background()
		for _, res := range sub.Resources {
			obj := &unstructured.Unstructured{}
			obj.SetGroupVersionKind(schema.GroupVersionKind{Version: "v1", Kind: res.Kind})
			obj.SetName(res.Name)
			obj.SetNamespace(res.Namespace)
			if err := kube.Delete(ctx, obj); err != nil && !apierrors.IsNotFound(err) {
				t.Logf("cleanup: deleting %s %s: %v", res.Kind, res.Name, err)
			}
		}
	})
}
