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

package submit

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/cli-utils/pkg/kstatus/status"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// ResourceRef identifies one created resource of a submission.
type ResourceRef struct {
	GVK       schema.GroupVersionKind
	Name      string
	Namespace string
}

// Key returns a unique string key for the resource reference.
func (r ResourceRef) Key() string {
	if r.Namespace == "" {
		return fmt.Sprintf("%s/%s", r.GVK.Kind, r.Name)
	}
	return fmt.Sprintf("%s/%s/%s", r.GVK.Kind, r.Namespace, r.Name)
}

// ResourceStatus is the observed kstatus state of one submission resource.
type ResourceStatus struct {
	Ref     ResourceRef
	Status  status.Status
	Message string
	Err     error
}

// IsCurrent returns true if the resource reached its desired state.
func (s ResourceStatus) IsCurrent() bool {
	return s.Status == status.CurrentStatus
}

// IsFailed returns true if the resource is in a failed state.
func (s ResourceStatus) IsFailed() bool {
	return s.Status == status.FailedStatus
}

// Waiter observes the resources of a submitted application via kstatus.
type Waiter struct {
	kube         client.Client
	log          *zap.SugaredLogger
	pollInterval time.Duration
}

// NewWaiter creates a Waiter polling at the given interval.
func NewWaiter(kube client.Client, pollInterval time.Duration, log *zap.SugaredLogger) *Waiter {
	return &Waiter{
		kube:         kube,
		log:          log.Named("waiter"),
		pollInterval: pollInterval,
	}
}

// Refs resolves the resource references of a submission against the client
// scheme.
func (w *Waiter) Refs(sub *Submission) ([]ResourceRef, error) {
	refs := make([]ResourceRef, 0, len(sub.Resources))
	for _, obj := range sub.Resources {
		gvk := obj.GetObjectKind().GroupVersionKind()
		if gvk.Empty() {
			resolved, err := w.kube.GroupVersionKindFor(obj)
			if err != nil {
				return nil, fmt.Errorf("resolving kind of %T %q: %w", obj, obj.GetName(), err)
			}
			gvk = resolved
		}
		refs = append(refs, ResourceRef{GVK: gvk, Name: obj.GetName(), Namespace: obj.GetNamespace()})
	}
	return refs, nil
}

// Check fetches each referenced resource and computes its kstatus state.
func (w *Waiter) Check(ctx context.Context, refs []ResourceRef) []ResourceStatus {
	statuses := make([]ResourceStatus, 0, len(refs))
	for _, ref := range refs {
		statuses = append(statuses, w.checkOne(ctx, ref))
	}
	return statuses
}

func (w *Waiter) checkOne(ctx context.Context, ref ResourceRef) ResourceStatus {
	obj := &unstructured.Unstructured{}
	obj.SetGroupVersionKind(ref.GVK)

	key := types.NamespacedName{Name: ref.Name, Namespace: ref.Namespace}
	if err := w.kube.Get(ctx, key, obj); err != nil {
		if apierrors.IsNotFound(err) {
			return ResourceStatus{Ref: ref, Status: status.NotFoundStatus, Message: "resource not found", Err: err}
		}
		return ResourceStatus{Ref: ref, Status: status.UnknownStatus, Message: fmt.Sprintf("failed to get resource: %v", err), Err: err}
	}

	result, err := status.Compute(obj)
	if err != nil {
		return ResourceStatus{Ref: ref, Status: status.UnknownStatus, Message: fmt.Sprintf("failed to compute status: %v", err), Err: err}
	}
	return ResourceStatus{Ref: ref, Status: result.Status, Message: result.Message}
}

// Await polls until every resource of the submission is Current, any resource
// is Failed, the timeout elapses, or the context is cancelled.
func (w *Waiter) Await(ctx context.Context, sub *Submission, timeout time.Duration) error {
	refs, err := w.Refs(sub)
	if err != nil {
		return err
	}

	deadline := time.Now().Add(timeout)
	for {
		statuses := w.Check(ctx, refs)

		if allCurrent(statuses) {
			w.log.Infow("Submission resources ready", "submission", sub.ID, "resources", len(statuses))
			return nil
		}
		for _, s := range statuses {
			if s.IsFailed() {
				return fmt.Errorf("resource %s failed: %s", s.Ref.Key(), s.Message)
			}
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("timeout waiting for submission %s after %v: %s", sub.ID, timeout, Summarize(statuses))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.pollInterval):
		}
	}
}

func allCurrent(statuses []ResourceStatus) bool {
	for _, s := range statuses {
		if !s.IsCurrent() {
			return false
		}
	}
	return true
}

// Summarize provides a human-readable summary of multiple resource states.
func Summarize(statuses []ResourceStatus) string {
	total := len(statuses)
	current := 0
	failed := 0
	inProgress := 0

	for _, s := range statuses {
		switch {
		case s.IsCurrent():
			current++
		case s.IsFailed():
			failed++
		case s.Status == status.InProgressStatus:
			inProgress++
		}
	}

	return fmt.Sprintf("%d/%d current, %d failed, %d in-progress", current, total, failed, inProgress)
}
