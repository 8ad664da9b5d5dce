package confapi

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/confradar/core"
	"github.com/trezcool/confradar/core/conference"
)

// Reference data kinds
const (
	RefCategories = "categories"
	RefCities     = "cities"
	RefRooms      = "rooms"
	RefStatuses   = "statuses"
)

var ErrUnknownReference = errors.New("unknown reference data kind")

// ReferenceSource serves the read-only lookups feeding select options, cached per kind.
type ReferenceSource struct {
	client *Client
	cache  *expirable.LRU[string, interface{}]
}

func NewReferenceSource(client *Client, conf *core.Config) *ReferenceSource {
	size := conf.Wizard.ReferenceCacheSize
	if size <= 0 {
		size = 16
	}
	ttl := conf.Wizard.ReferenceCacheTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &ReferenceSource{
		client: client,
		cache:  expirable.NewLRU[string, interface{}](size, nil, ttl),
	}
}

func (src *ReferenceSource) Categories(ctx context.Context) ([]conference.Category, error) {
	return fetch[conference.Category](ctx, src, RefCategories)
}

func (src *ReferenceSource) Cities(ctx context.Context) ([]conference.City, error) {
	return fetch[conference.City](ctx, src, RefCities)
}

func (src *ReferenceSource) Rooms(ctx context.Context) ([]conference.Room, error) {
	return fetch[conference.Room](ctx, src, RefRooms)
}

func (src *ReferenceSource) Statuses(ctx context.Context) ([]conference.Status, error) {
	return fetch[conference.Status](ctx, src, RefStatuses)
}

// Lookup returns the reference data of kind.
func (src *ReferenceSource) Lookup(ctx context.Context, kind string) (interface{}, error) {
	switch kind {
	case RefCategories:
		return src.Categories(ctx)
	case RefCities:
		return src.Cities(ctx)
	case RefRooms:
		return src.Rooms(ctx)
	case RefStatuses:
		return src.Statuses(ctx)
	}
	return nil, ErrUnknownReference
}

// fetch returns the list of kind from the cache, or from the API on a miss.
func fetch[T any](ctx context.Context, src *ReferenceSource, kind string) ([]T, error) {
	if cached, ok := src.cache.Get(kind); ok {
		if items, ok := cached.([]T); ok {
			return items, nil
		}
	}
	items := make([]T, 0)
	if err := src.client.do(ctx, rest.Get, "/"+kind, nil, &items); err != nil {
		return nil, errors.Wrapf(err, "fetching %s", kind)
	}
	src.cache.Add(kind, items)
	return items, nil
}
