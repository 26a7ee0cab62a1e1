// Public domain.

package tracker

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/singleflight"
	"gonum.org/v1/gonum/spatial/r2"
)

// ErrNoStars is returned when star detection finds nothing.
var ErrNoStars = errors.New("no stars detected")

// Detector finds stars in an image.
type Detector interface {
	// Detect returns the pixel positions of stars in the image.
	Detect(ctx context.Context, imageID string) ([]r2.Vec, error)
}

// DetectionCache runs a Detector at most once per image.
//
// Concurrent requests for the same image share one detection and the
// result for the most recent image is kept.
type DetectionCache struct {
	d Detector
	g singleflight.Group

	mu    sync.Mutex
	id    string
	stars []r2.Vec
}

// NewDetectionCache returns a cache in front of d.
func NewDetectionCache(d Detector) *DetectionCache {
	return &DetectionCache{d: d}
}

// Stars returns the stars detected in image imageID.
//
// A caller whose ctx ends stops waiting with ctx.Err().  The detection
// itself is not canceled with it, so other callers waiting on the same
// image still get its result.
func (c *DetectionCache) Stars(ctx context.Context, imageID string) ([]r2.Vec, error) {
	if s, ok := c.cached(imageID); ok {
		return s, nil
	}
	dctx := context.WithoutCancel(ctx)
	ch := c.g.DoChan(imageID, func() (interface{}, error) {
		// a detection may have completed since the check above
		if s, ok := c.cached(imageID); ok {
			return s, nil
		}
		stars, err := c.d.Detect(dctx, imageID)
		if err != nil {
			return nil, err
		}
		if stars == nil {
			stars = []r2.Vec{}
		}
		c.mu.Lock()
		c.id, c.stars = imageID, stars
		c.mu.Unlock()
		return stars, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.([]r2.Vec), nil
	}
}

func (c *DetectionCache) cached(imageID string) ([]r2.Vec, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stars != nil && c.id == imageID {
		return c.stars, true
	}
	return nil, false
}

// Closest returns the star of image imageID nearest to pixel p.
func (c *DetectionCache) Closest(ctx context.Context, imageID string, p r2.Vec) (r2.Vec, error) {
	stars, err := c.Stars(ctx, imageID)
	if err != nil {
		return p, err
	}
	if len(stars) == 0 {
		return p, ErrNoStars
	}
	best := stars[0]
	bestD := sqDist(best, p)
	for _, s := range stars[1:] {
		if d := sqDist(s, p); d < bestD {
			best, bestD = s, d
		}
	}
	return best, nil
}

func sqDist(a, b r2.Vec) float64 {
	d := r2.Sub(a, b)
	return r2.Dot(d, d)
}
