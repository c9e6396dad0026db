// internal/infra/secret/secretmanager.go
package secret

import (
	"context"
	"errors"
	"fmt"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
)

// accessor is the part of *secretmanager.Client used here.
type accessor interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
}

// Resolver reads secret payloads from Secret Manager.
type Resolver struct {
	client    accessor
	projectID string
}

func NewResolver(client *secretmanager.Client, projectID string) *Resolver {
	if client == nil {
		return &Resolver{projectID: projectID}
	}
	return &Resolver{client: client, projectID: projectID}
}

// Resolve returns the payload of name. name is either a full resource
// ("projects/p/secrets/s/versions/v") or a bare secret id (latest version).
func (r *Resolver) Resolve(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("secret: name is empty")
	}
	if r == nil || r.client == nil {
		return "", errors.New("secret: secret manager client is nil")
	}

	resp, err := r.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: r.resourceName(name),
	})
	if err != nil {
		return "", fmt.Errorf("secret: access %s: %w", name, err)
	}
	return strings.TrimSpace(string(resp.GetPayload().GetData())), nil
}

// ValueOr returns plain when set, otherwise the secret named secretName (when set).
func (r *Resolver) ValueOr(ctx context.Context, plain, secretName string) (string, error) {
	if plain != "" || strings.TrimSpace(secretName) == "" {
		return plain, nil
	}
	return r.Resolve(ctx, secretName)
}

func (r *Resolver) resourceName(name string) string {
	if strings.HasPrefix(name, "projects/") {
		if strings.Contains(name, "/versions/") {
			return name
		}
		return name + "/versions/latest"
	}
	return fmt.Sprintf("projects/%s/secrets/%s/versions/latest", r.projectID, name)
}
