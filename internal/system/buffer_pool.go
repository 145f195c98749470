package system

import (
	"image"
	"sync"
)

// ImagePool recycles *image.RGBA crop buffers of equal size to keep GC
// pressure down when many cells are cropped in parallel.
type ImagePool struct {
	pools map[image.Point]*sync.Pool
	mu    sync.RWMutex
}

func NewImagePool() *ImagePool {
	return &ImagePool{pools: make(map[image.Point]*sync.Pool)}
}

// Get returns an RGBA image with bounds (0,0)-(w,h). Its pixels are
// unspecified; callers overwrite every pixel.
func (p *ImagePool) Get(w, h int) *image.RGBA {
	if p == nil {
		return image.NewRGBA(image.Rect(0, 0, w, h))
	}
	key := image.Point{X: w, Y: h}
	p.mu.RLock()
	pool, exists := p.pools[key]
	p.mu.RUnlock()

	if !exists {
		p.mu.Lock()
		// Double check
		pool, exists = p.pools[key]
		if !exists {
			pool = &sync.Pool{
				New: func() interface{} {
					return image.NewRGBA(image.Rect(0, 0, key.X, key.Y))
				},
			}
			p.pools[key] = pool
		}
		p.mu.Unlock()
	}

	return pool.Get().(*image.RGBA)
}

// Put hands img back for reuse. Images of sizes never requested through
// Get are dropped.
func (p *ImagePool) Put(img *image.RGBA) {
	if p == nil || img == nil || img.Rect.Min != (image.Point{}) {
		return
	}
	key := img.Rect.Size()
	p.mu.RLock()
	pool, exists := p.pools[key]
	p.mu.RUnlock()

	if exists {
		pool.Put(img)
	}
}
