package api

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResource_CRUD(t *testing.T) {
	type call struct{ method, path string }
	var calls []call

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, call{r.Method, r.URL.Path})
		switch r.Method {
		case http.MethodGet:
			if r.URL.Path == "/services/" {
				assert.Equal(t, "true", r.URL.Query().Get("is_popular"))
				writeJSON(w, http.StatusOK, Page[Service]{Results: []Service{{ID: 1, Name: "Cornrows"}}})
				return
			}
			writeJSON(w, http.StatusOK, Service{ID: 1, Name: "Cornrows"})
		case http.MethodPost:
			writeJSON(w, http.StatusCreated, Service{ID: 2, Name: "Twists"})
		case http.MethodPatch:
			writeJSON(w, http.StatusOK, Service{ID: 1, Name: "Cornrows XL"})
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		}
	})

	ctx := context.Background()
	res := Services(c)

	list, err := res.List(ctx, url.Values{"is_popular": {"true"}})
	require.NoError(t, err)
	require.Len(t, list, 1)

	got, err := res.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Cornrows", got.Name)

	created, err := res.Create(ctx, map[string]any{"name": "Twists"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), created.ID)

	updated, err := res.Patch(ctx, 1, map[string]any{"name": "Cornrows XL"})
	require.NoError(t, err)
	assert.Equal(t, "Cornrows XL", updated.Name)

	require.NoError(t, res.Delete(ctx, 1))

	assert.Equal(t, []call{
		{http.MethodGet, "/services/"},
		{http.MethodGet, "/services/1/"},
		{http.MethodPost, "/services/"},
		{http.MethodPatch, "/services/1/"},
		{http.MethodDelete, "/services/1/"},
	}, calls)
}

func TestResource_Paths(t *testing.T) {
	c := NewClient("http://example.test", 0)
	assert.Equal(t, "/staff/3/", Staff(c).item(3))
	assert.Equal(t, "/bookings/3/", Appointments(c).item(3))
	assert.Equal(t, "/gallery/images/3/", Images(c).item(3))
	assert.Equal(t, "/custom/3/", NewResource[Image](c, "/custom").item(3))
}

func TestResource_ListFollowsPages(t *testing.T) {
	var pages []string
	var srvURL string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bookings/", r.URL.Path)
		assert.Equal(t, "pending", r.URL.Query().Get("status"))
		page := r.URL.Query().Get("page")
		pages = append(pages, page)
		if page == "" {
			next := srvURL + "/bookings/?page=2&status=pending"
			writeJSON(w, http.StatusOK, Page[Appointment]{Count: 2, Next: &next, Results: []Appointment{{ID: 1}}})
			return
		}
		writeJSON(w, http.StatusOK, Page[Appointment]{Count: 2, Results: []Appointment{{ID: 2}}})
	})
	srvURL = c.baseURL

	appts, err := Appointments(c).List(context.Background(), url.Values{"status": {"pending"}})
	require.NoError(t, err)
	require.Len(t, appts, 2)
	assert.Equal(t, int64(2), appts[1].ID)
	assert.Equal(t, []string{"", "2"}, pages)
}

func TestResource_ListBadNextLink(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		next := "http://[::1"
		writeJSON(w, http.StatusOK, Page[Image]{Next: &next, Results: []Image{{ID: 1}}})
	})

	_, err := Images(c).List(context.Background(), nil)
	var se *ShapeError
	assert.ErrorAs(t, err, &se)
}
