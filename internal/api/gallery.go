package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// ListImages returns gallery images matching f.
func (c *Client) ListImages(ctx context.Context, f ImageFilter) ([]Image, error) {
	return listAll[Image](ctx, c, "/gallery/images/", f.values())
}

// FeaturedImages returns the featured images.
func (c *Client) FeaturedImages(ctx context.Context) ([]Image, error) {
	var images []Image
	if err := c.doGet(ctx, "/gallery/images/featured/", nil, &images); err != nil {
		return nil, err
	}
	return images, nil
}

// IncrementViews records a view and returns the new count.
func (c *Client) IncrementViews(ctx context.Context, id int64) (int, error) {
	var resp struct {
		Views *int `json:"views"`
	}
	path := fmt.Sprintf("/gallery/images/%d/increment_views/", id)
	if err := c.doGet(ctx, path, nil, &resp); err != nil {
		return 0, err
	}
	if resp.Views == nil {
		return 0, &RequestFailedError{Status: 200, Err: &ShapeError{Endpoint: path, Err: fmt.Errorf("missing views")}}
	}
	return *resp.Views, nil
}

// LikeImage records a like and returns the new count.
func (c *Client) LikeImage(ctx context.Context, id int64) (int, error) {
	var resp struct {
		Likes *int `json:"likes"`
	}
	path := fmt.Sprintf("/gallery/images/%d/like/", id)
	if err := c.doPost(ctx, path, nil, &resp); err != nil {
		return 0, err
	}
	if resp.Likes == nil {
		return 0, &RequestFailedError{Status: 200, Err: &ShapeError{Endpoint: path, Err: fmt.Errorf("missing likes")}}
	}
	return *resp.Likes, nil
}

func (f ImageFilter) values() url.Values {
	q := url.Values{}
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	if f.ImageType != "" {
		q.Set("image_type", f.ImageType)
	}
	if f.Service > 0 {
		q.Set("service", strconv.FormatInt(f.Service, 10))
	}
	if f.Staff > 0 {
		q.Set("staff", strconv.FormatInt(f.Staff, 10))
	}
	if f.Featured {
		q.Set("is_featured", "true")
	}
	return q
}
