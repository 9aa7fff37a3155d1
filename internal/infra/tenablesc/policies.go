package tenablesc

import (
	"context"
	"net/http"
	"net/url"

	"github.com/openctemio/scanctl/pkg/domain/credential"
	"github.com/openctemio/scanctl/pkg/domain/policy"
)

type namedResource struct {
	ID   flexString `json:"id"`
	Name string     `json:"name"`
	Type string     `json:"type"`
}

// ListPolicies returns the usable scan policies.
func (s *Session) ListPolicies(ctx context.Context) ([]policy.Policy, error) {
	var out usableSet[namedResource]
	q := url.Values{"fields": {"id,name"}}
	if err := s.do(ctx, http.MethodGet, "/policy", q, nil, &out); err != nil {
		return nil, err
	}
	policies := make([]policy.Policy, 0, len(out.Usable))
	for _, r := range out.Usable {
		policies = append(policies, policy.Policy{ID: string(r.ID), Name: r.Name})
	}
	return policies, nil
}

// ListCredentials returns the usable credentials. Secrets are never requested.
func (s *Session) ListCredentials(ctx context.Context) ([]credential.Credential, error) {
	var out usableSet[namedResource]
	q := url.Values{"fields": {"id,name,type"}}
	if err := s.do(ctx, http.MethodGet, "/credential", q, nil, &out); err != nil {
		return nil, err
	}
	creds := make([]credential.Credential, 0, len(out.Usable))
	for _, r := range out.Usable {
		creds = append(creds, credential.Credential{ID: string(r.ID), Name: r.Name, Type: r.Type})
	}
	return creds, nil
}
