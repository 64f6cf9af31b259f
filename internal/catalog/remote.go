package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/utafrali/shopcart/internal/domain"
	apperrors "github.com/utafrali/shopcart/pkg/errors"
	"github.com/utafrali/shopcart/pkg/httpclient"
)

// RemoteGateway resolves items against an external catalog service over HTTP.
// All calls go through a circuit breaker so a degraded catalog cannot stall
// cart and checkout request handling.
type RemoteGateway struct {
	client  *httpclient.CircuitBreakerClient
	baseURL string
}

// NewRemoteGateway creates a gateway that calls the catalog service at baseURL.
func NewRemoteGateway(client *httpclient.CircuitBreakerClient, baseURL string) *RemoteGateway {
	return &RemoteGateway{client: client, baseURL: baseURL}
}

// itemEnvelope mirrors the catalog service's success envelope.
type itemEnvelope struct {
	Success bool         `json:"success"`
	Data    *domain.Item `json:"data"`
}

type itemListEnvelope struct {
	Success bool          `json:"success"`
	Data    []domain.Item `json:"data"`
}

// Resolve fetches a single item from the remote catalog.
func (g *RemoteGateway) Resolve(ctx context.Context, itemID string) (*domain.Item, error) {
	resp, err := g.client.Get(ctx, g.baseURL+"/items/"+url.PathEscape(itemID))
	if err != nil {
		return nil, fmt.Errorf("catalog request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		err := httpclient.ParseResponseError(resp, "catalog")
		if apperrors.HTTPStatus(err) == http.StatusNotFound {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var envelope itemEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode catalog response: %w", err)
	}
	if envelope.Data == nil {
		return nil, errors.New("catalog response missing item data")
	}

	return envelope.Data, nil
}

// ResolveAll fetches the given items from the remote catalog. The catalog's
// bulk endpoint returns only the items that exist, so missing IDs are simply
// absent from the result.
func (g *RemoteGateway) ResolveAll(ctx context.Context, itemIDs []string) (map[string]domain.Item, error) {
	if len(itemIDs) == 0 {
		return map[string]domain.Item{}, nil
	}

	q := url.Values{}
	for _, id := range itemIDs {
		q.Add("id", id)
	}

	resp, err := g.client.Get(ctx, g.baseURL+"/items?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("catalog request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, "catalog")
	}
	defer func() { _ = resp.Body.Close() }()

	var envelope itemListEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode catalog response: %w", err)
	}

	resolved := make(map[string]domain.Item, len(envelope.Data))
	for _, item := range envelope.Data {
		resolved[item.ID] = item
	}
	return resolved, nil
}
