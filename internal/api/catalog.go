package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

const (
	cacheKeyServices   = "salonbook:services"
	cacheKeyStaff      = "salonbook:staff"
	cacheKeyCategories = "salonbook:categories"
)

func staffByServiceKey(serviceID int64) string {
	return fmt.Sprintf("salonbook:staff:service:%d", serviceID)
}

// ListServices returns the active services.
func (c *Client) ListServices(ctx context.Context) ([]Service, error) {
	return cachedList[Service](ctx, c, cacheKeyServices, "/services/", nil)
}

// ListServicesInCategory returns the active services of one category.
func (c *Client) ListServicesInCategory(ctx context.Context, category string) ([]Service, error) {
	q := url.Values{"category": {category}}
	return cachedList[Service](ctx, c, cacheKeyServices+":category:"+category, "/services/", q)
}

// ListCategories returns the service categories in display order.
func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	return cachedList[Category](ctx, c, cacheKeyCategories, "/services/categories/", nil)
}

// ListStaff returns all staff.
func (c *Client) ListStaff(ctx context.Context) ([]StaffMember, error) {
	return cachedList[StaffMember](ctx, c, cacheKeyStaff, "/staff/", nil)
}

// GetEligibleStaff returns staff able to perform serviceID.
func (c *Client) GetEligibleStaff(ctx context.Context, serviceID int64) ([]StaffMember, error) {
	q := url.Values{"service": {strconv.FormatInt(serviceID, 10)}}
	return cachedList[StaffMember](ctx, c, staffByServiceKey(serviceID), "/staff/", q)
}

// InvalidateCatalog drops every cached catalog response. Call it after an admin edit.
func (c *Client) InvalidateCatalog(ctx context.Context) {
	if c.redis == nil {
		return
	}
	keys := []string{cacheKeyServices, cacheKeyStaff, cacheKeyCategories}
	for _, pattern := range []string{cacheKeyServices + ":*", cacheKeyStaff + ":*"} {
		iter := c.redis.Scan(ctx, 0, pattern, 100).Iterator()
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			c.logger.Warn().Err(err).Str("pattern", pattern).Msg("scan catalog cache")
		}
	}
	c.dropCache(ctx, keys...)
}

func cachedList[T any](ctx context.Context, c *Client, key, path string, query url.Values) ([]T, error) {
	var items []T
	if c.readCache(ctx, key, &items) {
		return items, nil
	}
	items, err := listAll[T](ctx, c, path, query)
	if err != nil {
		return nil, err
	}
	c.writeCache(ctx, key, items)
	return items, nil
}
