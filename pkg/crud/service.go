// Package crud proxies remote REST collections (staff, clients, inventory) through
// one generic service and controller.
package crud

import (
	"context"
	"net/url"

	"github.com/go-faster/errors"

	"github.com/fieldops/opsboard/pkg/apiclient"
)

type Record = map[string]any

// Service is a thin client for one remote collection at endpoint.
type Service struct {
	api      apiclient.API
	name     string
	endpoint string
}

func NewService(api apiclient.API, name, endpoint string) *Service {
	return &Service{api: api, name: name, endpoint: endpoint}
}

func (s *Service) Name() string {
	return s.name
}

func (s *Service) Endpoint() string {
	return s.endpoint
}

func (s *Service) path(id string) string {
	if id == "" {
		return s.endpoint
	}
	return s.endpoint + "/" + url.PathEscape(id)
}

// List fetches the collection; query is forwarded as-is.
func (s *Service) List(ctx context.Context, query url.Values) ([]Record, error) {
	path := s.endpoint
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	resp, err := s.api.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	var out []Record
	if err := resp.Decode(&out); err != nil {
		return nil, errors.Wrapf(err, "decode %s list", s.name)
	}
	if out == nil {
		out = []Record{}
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (Record, error) {
	resp, err := s.api.Get(ctx, s.path(id))
	if err != nil {
		return nil, err
	}
	var out Record
	if err := resp.Decode(&out); err != nil {
		return nil, errors.Wrapf(err, "decode %s %s", s.name, id)
	}
	return out, nil
}

func (s *Service) Create(ctx context.Context, body Record) (Record, error) {
	resp, err := s.api.Post(ctx, s.endpoint, body)
	if err != nil {
		return nil, err
	}
	return decodeOptional(resp), nil
}

func (s *Service) Update(ctx context.Context, id string, body Record) (Record, error) {
	resp, err := s.api.Put(ctx, s.path(id), body)
	if err != nil {
		return nil, err
	}
	return decodeOptional(resp), nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	_, err := s.api.Del(ctx, s.path(id))
	return err
}

// decodeOptional tolerates write endpoints that answer with an empty or non-object body.
func decodeOptional(resp *apiclient.Response) Record {
	out := Record{}
	if resp == nil || len(resp.Data) == 0 {
		return out
	}
	if err := resp.Decode(&out); err != nil {
		return Record{}
	}
	return out
}
