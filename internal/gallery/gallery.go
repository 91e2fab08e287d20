// Package gallery keeps the loaded gallery and applies likes and views optimistically.
package gallery

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"salonbook/internal/api"
	"salonbook/internal/metrics"
)

const (
	MsgLoadFailed = "Failed to load gallery"
	MsgLikeFailed = "Failed to like image"
	MsgViewFailed = "Failed to record view"
)

var (
	ErrUnknownImage = errors.New("image not loaded")
	ErrAlreadyLiked = errors.New("image already liked")
)

// Client is the gallery part of the backend.
type Client interface {
	ListImages(ctx context.Context, f api.ImageFilter) ([]api.Image, error)
	FeaturedImages(ctx context.Context) ([]api.Image, error)
	LikeImage(ctx context.Context, id int64) (int, error)
	IncrementViews(ctx context.Context, id int64) (int, error)
}

// Notifier shows error messages.
type Notifier interface {
	Error(msg string)
}

// Gallery is the client-side image list.
type Gallery struct {
	mu     sync.Mutex
	client Client
	notify Notifier
	logger zerolog.Logger

	images []api.Image
	liked  map[int64]bool
	// loads and revs detect writes that landed while a request was in flight.
	loads uint64
	revs  map[field]uint64
}

type field struct {
	id int64
	c  counter
}

// mark is the state an optimistic update started from.
type mark struct {
	loads uint64
	rev   uint64
	prev  int
}

func New(client Client, notify Notifier, logger *zerolog.Logger) *Gallery {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "gallery").Logger()
	}
	return &Gallery{
		client: client,
		notify: notify,
		logger: l,
		liked:  make(map[int64]bool),
		revs:   make(map[field]uint64),
	}
}

// Load replaces the list with images matching f. On failure the old list stays.
func (g *Gallery) Load(ctx context.Context, f api.ImageFilter) error {
	images, err := g.client.ListImages(ctx, f)
	return g.replace(images, err)
}

// LoadFeatured replaces the list with the featured images.
func (g *Gallery) LoadFeatured(ctx context.Context) error {
	images, err := g.client.FeaturedImages(ctx)
	return g.replace(images, err)
}

func (g *Gallery) replace(images []api.Image, err error) error {
	if err != nil {
		g.logger.Warn().Err(err).Msg("load gallery")
		g.fail(err, MsgLoadFailed)
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.images = append([]api.Image(nil), images...)
	g.loads++
	return nil
}

// Images returns a copy of the list.
func (g *Gallery) Images() []api.Image {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]api.Image(nil), g.images...)
}

// Image returns one image.
func (g *Gallery) Image(id int64) (api.Image, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if i := g.find(id); i >= 0 {
		return g.images[i], true
	}
	return api.Image{}, false
}

// Liked reports whether id was liked in this gallery.
func (g *Gallery) Liked(id int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.liked[id]
}

// Like adds a like locally, then reconciles with the server count or rolls back.
func (g *Gallery) Like(ctx context.Context, id int64) (int, error) {
	g.mu.Lock()
	if g.liked[id] {
		g.mu.Unlock()
		return 0, ErrAlreadyLiked
	}
	m, ok := g.apply(id, likes)
	if !ok {
		g.mu.Unlock()
		return 0, ErrUnknownImage
	}
	g.liked[id] = true
	g.mu.Unlock()

	n, err := g.client.LikeImage(ctx, id)

	g.mu.Lock()
	if err != nil {
		g.rollback(id, likes, m)
		delete(g.liked, id)
		g.mu.Unlock()
		metrics.IncGalleryRollback("like")
		g.fail(err, MsgLikeFailed)
		return 0, err
	}
	g.set(id, likes, n)
	g.mu.Unlock()
	return n, nil
}

// View records a view locally, then reconciles with the server count or rolls back.
func (g *Gallery) View(ctx context.Context, id int64) (int, error) {
	g.mu.Lock()
	m, ok := g.apply(id, views)
	if !ok {
		g.mu.Unlock()
		return 0, ErrUnknownImage
	}
	g.mu.Unlock()

	n, err := g.client.IncrementViews(ctx, id)

	g.mu.Lock()
	if err != nil {
		g.rollback(id, views, m)
		g.mu.Unlock()
		metrics.IncGalleryRollback("view")
		g.fail(err, MsgViewFailed)
		return 0, err
	}
	g.set(id, views, n)
	g.mu.Unlock()
	return n, nil
}

type counter int

const (
	likes counter = iota
	views
)

// apply increments a counter speculatively and returns the state to roll back to.
// It reports false if id is not loaded.
func (g *Gallery) apply(id int64, c counter) (mark, bool) {
	i := g.find(id)
	if i < 0 {
		return mark{}, false
	}
	prev := g.value(i, c)
	g.set(id, c, prev+1)
	return mark{loads: g.loads, rev: g.revs[field{id, c}], prev: prev}, true
}

// rollback restores the pre-update value unless a reload or a reconcile wrote
// the counter since apply. A newer value is authoritative and is kept.
func (g *Gallery) rollback(id int64, c counter, m mark) {
	if g.loads != m.loads || g.revs[field{id, c}] != m.rev {
		return
	}
	g.set(id, c, m.prev)
}

func (g *Gallery) value(i int, c counter) int {
	if c == likes {
		return g.images[i].Likes
	}
	return g.images[i].Views
}

func (g *Gallery) set(id int64, c counter, n int) {
	i := g.find(id)
	if i < 0 {
		return
	}
	if c == likes {
		g.images[i].Likes = n
	} else {
		g.images[i].Views = n
	}
	g.revs[field{id, c}]++
}

func (g *Gallery) find(id int64) int {
	for i := range g.images {
		if g.images[i].ID == id {
			return i
		}
	}
	return -1
}

func (g *Gallery) fail(err error, msg string) {
	if g.notify == nil || errors.Is(err, api.ErrAuthExpired) {
		return
	}
	g.notify.Error(api.Message(err, msg))
}
