package gallery

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salonbook/internal/api"
)

type fakeClient struct {
	images   []api.Image
	listErr  error
	likeErr  error
	viewErr  error
	likes    int
	views    int
	inFlight func(*Gallery)
	g        *Gallery
}

func (f *fakeClient) ListImages(_ context.Context, _ api.ImageFilter) ([]api.Image, error) {
	return f.images, f.listErr
}

func (f *fakeClient) FeaturedImages(context.Context) ([]api.Image, error) {
	var out []api.Image
	for _, img := range f.images {
		if img.IsFeatured {
			out = append(out, img)
		}
	}
	return out, f.listErr
}

func (f *fakeClient) LikeImage(context.Context, int64) (int, error) {
	if f.inFlight != nil {
		f.inFlight(f.g)
	}
	return f.likes, f.likeErr
}

func (f *fakeClient) IncrementViews(context.Context, int64) (int, error) {
	if f.inFlight != nil {
		f.inFlight(f.g)
	}
	return f.views, f.viewErr
}

type notes struct{ errs []string }

func (n *notes) Error(msg string) { n.errs = append(n.errs, msg) }

func loaded(t *testing.T, f *fakeClient) (*Gallery, *notes) {
	t.Helper()
	n := &notes{}
	g := New(f, n, nil)
	f.g = g
	require.NoError(t, g.Load(context.Background(), api.ImageFilter{}))
	return g, n
}

func TestLike_OptimisticThenAuthoritative(t *testing.T) {
	f := &fakeClient{images: []api.Image{{ID: 1, Likes: 4}}, likes: 9}
	f.inFlight = func(g *Gallery) {
		img, _ := g.Image(1)
		assert.Equal(t, 5, img.Likes)
	}
	g, _ := loaded(t, f)

	n, err := g.Like(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 9, n)
	img, _ := g.Image(1)
	assert.Equal(t, 9, img.Likes)
	assert.True(t, g.Liked(1))

	_, err = g.Like(context.Background(), 1)
	assert.ErrorIs(t, err, ErrAlreadyLiked)
}

func TestLike_RollbackOnFailure(t *testing.T) {
	f := &fakeClient{images: []api.Image{{ID: 1, Likes: 4}}, likeErr: &api.RequestFailedError{Status: 500}}
	g, n := loaded(t, f)

	_, err := g.Like(context.Background(), 1)
	require.Error(t, err)
	img, _ := g.Image(1)
	assert.Equal(t, 4, img.Likes)
	assert.False(t, g.Liked(1))
	assert.Equal(t, []string{MsgLikeFailed}, n.errs)
}

func TestLike_FailureKeepsReloadedCount(t *testing.T) {
	f := &fakeClient{images: []api.Image{{ID: 1, Likes: 4}}, likeErr: errors.New("offline")}
	f.inFlight = func(g *Gallery) {
		f.images = []api.Image{{ID: 1, Likes: 10}}
		require.NoError(t, g.Load(context.Background(), api.ImageFilter{}))
	}
	g, _ := loaded(t, f)

	_, err := g.Like(context.Background(), 1)
	require.Error(t, err)
	img, _ := g.Image(1)
	assert.Equal(t, 10, img.Likes, "the reloaded server count wins")
	assert.False(t, g.Liked(1))
}

func TestLike_RollbackIgnoresOtherCounter(t *testing.T) {
	f := &fakeClient{images: []api.Image{{ID: 1, Likes: 4, Views: 2}}, likeErr: errors.New("offline"), views: 7}
	f.inFlight = func(g *Gallery) {
		f.inFlight = nil
		_, err := g.View(context.Background(), 1)
		require.NoError(t, err)
	}
	g, _ := loaded(t, f)

	_, err := g.Like(context.Background(), 1)
	require.Error(t, err)
	img, _ := g.Image(1)
	assert.Equal(t, 4, img.Likes)
	assert.Equal(t, 7, img.Views)
}

func TestView_FailureKeepsReconciledCount(t *testing.T) {
	f := &fakeClient{images: []api.Image{{ID: 2, Views: 10}}, viewErr: errors.New("offline")}
	f.inFlight = func(g *Gallery) {
		f.images = []api.Image{{ID: 2, Views: 30}}
		require.NoError(t, g.Load(context.Background(), api.ImageFilter{}))
	}
	g, _ := loaded(t, f)

	_, err := g.View(context.Background(), 2)
	require.Error(t, err)
	img, _ := g.Image(2)
	assert.Equal(t, 30, img.Views)
}

func TestView_RollbackOnFailure(t *testing.T) {
	f := &fakeClient{images: []api.Image{{ID: 2, Views: 10}}, viewErr: errors.New("offline")}
	g, n := loaded(t, f)

	_, err := g.View(context.Background(), 2)
	require.Error(t, err)
	img, _ := g.Image(2)
	assert.Equal(t, 10, img.Views)
	assert.Equal(t, []string{MsgViewFailed}, n.errs)
}

func TestView_Reconciles(t *testing.T) {
	f := &fakeClient{images: []api.Image{{ID: 2, Views: 10}}, views: 15}
	g, _ := loaded(t, f)

	n, err := g.View(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 15, n)
}

func TestUnknownImage(t *testing.T) {
	f := &fakeClient{}
	g, _ := loaded(t, f)

	_, err := g.Like(context.Background(), 3)
	assert.ErrorIs(t, err, ErrUnknownImage)
	_, err = g.View(context.Background(), 3)
	assert.ErrorIs(t, err, ErrUnknownImage)
}

func TestLoad_FailureKeepsList(t *testing.T) {
	f := &fakeClient{images: []api.Image{{ID: 1}, {ID: 2, IsFeatured: true}}}
	g, n := loaded(t, f)

	require.NoError(t, g.LoadFeatured(context.Background()))
	require.Len(t, g.Images(), 1)

	f.listErr = &api.RequestFailedError{Status: 503, Message: "maintenance"}
	require.Error(t, g.Load(context.Background(), api.ImageFilter{Category: "braids"}))
	assert.Len(t, g.Images(), 1)
	assert.Equal(t, []string{"maintenance"}, n.errs)
}

func TestAuthExpiredIsQuiet(t *testing.T) {
	f := &fakeClient{images: []api.Image{{ID: 1, Likes: 1}}, likeErr: api.ErrAuthExpired}
	g, n := loaded(t, f)

	_, err := g.Like(context.Background(), 1)
	assert.ErrorIs(t, err, api.ErrAuthExpired)
	assert.Empty(t, n.errs)
}
