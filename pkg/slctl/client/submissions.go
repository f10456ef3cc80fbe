package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

type SubmissionService struct {
	client *Client
}

func (c *Client) Submissions() *SubmissionService {
	return &SubmissionService{client: c}
}

// SubmissionRequest is the creation payload for api/submissions.
type SubmissionRequest struct {
	Name       string            `json:"name"`
	Namespace  string            `json:"namespace"`
	Properties map[string]string `json:"properties"`
	Labels     map[string]string `json:"labels"`
}

// ResourceInfo identifies one Kubernetes resource of a submission.
type ResourceInfo struct {
	Kind      string `json:"kind"`
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
}

// Submission is the server's view of a prepared submission.
type Submission struct {
	ID               string            `json:"id"`
	ServiceName      string            `json:"serviceName"`
	UsedFallbackName bool              `json:"usedFallbackName"`
	Namespace        string            `json:"namespace"`
	Submitted        bool              `json:"submitted"`
	Properties       map[string]string `json:"properties"`
	Resources        []ResourceInfo    `json:"resources"`
}

// ResourceStatusInfo is the observed state of one submission resource.
type ResourceStatusInfo struct {
	Kind      string `json:"kind"`
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
}

// SubmissionStatus is the server's view of a submission and its resources.
type SubmissionStatus struct {
	ID        string               `json:"id"`
	Namespace string               `json:"namespace"`
	Resources []ResourceInfo       `json:"resources"`
	Statuses  []ResourceStatusInfo `json:"statuses,omitempty"`
	Summary   string               `json:"summary,omitempty"`
}

type SubmissionCreateOptions struct {
	// Submit asks the server to create the prepared resources on the cluster.
	Submit bool
}

func (s *SubmissionService) Create(ctx context.Context, req SubmissionRequest, opts SubmissionCreateOptions) (*Submission, error) {
	endpoint := "api/submissions"
	params := url.Values{}
	if opts.Submit {
		params.Set("submit", "true")
	}
	if encoded := params.Encode(); encoded != "" {
		endpoint = fmt.Sprintf("%s?%s", endpoint, encoded)
	}
	var sub Submission
	if err := s.client.do(ctx, http.MethodPost, endpoint, req, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *SubmissionService) Get(ctx context.Context, id string) (*SubmissionStatus, error) {
	endpoint := fmt.Sprintf("api/submissions/%s", url.PathEscape(id))
	var status SubmissionStatus
	if err := s.client.do(ctx, http.MethodGet, endpoint, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}
