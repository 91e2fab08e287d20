package api

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Resource is a CRUD client for one admin collection, e.g. "/services/".
type Resource[T any] struct {
	client *Client
	path   string
}

// NewResource binds a collection path to c.
func NewResource[T any](c *Client, path string) *Resource[T] {
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	return &Resource[T]{client: c, path: path}
}

// Services is the admin collection of salon services.
func Services(c *Client) *Resource[Service] { return NewResource[Service](c, "/services/") }

// Staff is the admin collection of stylists.
func Staff(c *Client) *Resource[StaffMember] { return NewResource[StaffMember](c, "/staff/") }

// Appointments is the admin collection of bookings. Staff accounts see every customer's.
func Appointments(c *Client) *Resource[Appointment] {
	return NewResource[Appointment](c, "/bookings/")
}

// Images is the admin collection of gallery images.
func Images(c *Client) *Resource[Image] { return NewResource[Image](c, "/gallery/images/") }

// List returns every record matching query, following pagination.
func (r *Resource[T]) List(ctx context.Context, query url.Values) ([]T, error) {
	return listAll[T](ctx, r.client, r.path, query)
}

// Get returns one record.
func (r *Resource[T]) Get(ctx context.Context, id int64) (*T, error) {
	var item T
	if err := r.client.doGet(ctx, r.item(id), nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// Create posts body and returns the stored record.
func (r *Resource[T]) Create(ctx context.Context, body any) (*T, error) {
	var item T
	if err := r.client.doPost(ctx, r.path, body, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// Patch updates the fields present in body.
func (r *Resource[T]) Patch(ctx context.Context, id int64, body any) (*T, error) {
	var item T
	if err := r.client.doPatch(ctx, r.item(id), body, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// Delete removes the record.
func (r *Resource[T]) Delete(ctx context.Context, id int64) error {
	return r.client.doDelete(ctx, r.item(id))
}

func (r *Resource[T]) item(id int64) string {
	return fmt.Sprintf("%s%d/", r.path, id)
}
