package engine

import (
	"context"
	"fmt"
	"image"
	"math"
	"runtime"
	"sync"

	"github.com/linusmossberg/light-field-renderer/internal/scene"
)

const tileSize = 32

// RenderConfig defines internal render parameters.
type RenderConfig struct {
	Width        int
	Height       int
	SamplesPerPx int
	MaxDepth     int

	// Seed selects the noise pattern. Two renders of the same scene with the
	// same seed are identical regardless of Workers.
	Seed int64
	// Workers is the number of render goroutines; 0 means runtime.NumCPU().
	Workers int
}

// Validate checks that cfg describes a renderable image.
func (cfg RenderConfig) Validate() error {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("invalid resolution %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.SamplesPerPx <= 0 {
		return fmt.Errorf("samples per pixel must be positive, got %d", cfg.SamplesPerPx)
	}
	if cfg.MaxDepth <= 0 {
		return fmt.Errorf("max depth must be positive, got %d", cfg.MaxDepth)
	}
	if cfg.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", cfg.Workers)
	}
	return nil
}

// Render path traces the scene into a new image.
func Render(ctx context.Context, sc *scene.Scene, cfg RenderConfig) (*image.RGBA, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	img := image.NewRGBA(image.Rect(0, 0, cfg.Width, cfg.Height))
	if err := RenderInto(ctx, sc, cfg, img, nil); err != nil {
		return nil, err
	}
	return img, nil
}

type tile struct {
	index          int
	x0, y0, x1, y1 int
}

// RenderInto renders the scene into img, which must match the configured
// resolution. If progress is not nil it is called from worker goroutines
// roughly every 5% of tiles and once at the end. Cancelling ctx stops the
// workers after their current tile and returns ctx.Err().
func RenderInto(ctx context.Context, sc *scene.Scene, cfg RenderConfig, img *image.RGBA, progress func()) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	b := img.Bounds()
	if b.Dx() != cfg.Width || b.Dy() != cfg.Height {
		return fmt.Errorf("image is %dx%d, config wants %dx%d", b.Dx(), b.Dy(), cfg.Width, cfg.Height)
	}

	world := sceneToWorld(sc)
	cam := newCamera(sc.Camera, cfg)
	background := backgroundFor(sc)

	invWidth := 1.0 / float64(max(cfg.Width-1, 1))
	invHeight := 1.0 / float64(max(cfg.Height-1, 1))
	invSamples := 1.0 / float64(cfg.SamplesPerPx)
	heightMinus1 := float64(cfg.Height - 1)

	var tiles []tile
	for ty := 0; ty < cfg.Height; ty += tileSize {
		for tx := 0; tx < cfg.Width; tx += tileSize {
			tiles = append(tiles, tile{
				index: len(tiles),
				x0:    tx,
				y0:    ty,
				x1:    min(tx+tileSize, cfg.Width),
				y1:    min(ty+tileSize, cfg.Height),
			})
		}
	}
	queue := make(chan tile, len(tiles))
	for _, t := range tiles {
		queue <- t
	}
	close(queue)

	workers := cfg.Workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}

	var (
		wg        sync.WaitGroup
		progMu    sync.Mutex
		processed int
	)
	threshold := max(1, len(tiles)/20)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rng := newRandSource(0)

			for t := range queue {
				if ctx.Err() != nil {
					continue
				}
				rng.reseed(tileSeed(cfg.Seed, t.index))

				for y := t.y0; y < t.y1; y++ {
					flipY := heightMinus1 - float64(y)
					for x := t.x0; x < t.x1; x++ {
						var col vec3
						for s := 0; s < cfg.SamplesPerPx; s++ {
							u := (float64(x) + rng.Float64()) * invWidth
							vv := (flipY + rng.Float64()) * invHeight
							col = col.add(rayColor(cam.getRay(u, vv, rng), world, background, cfg.MaxDepth, rng))
						}
						writePixel(img, x, y, col.mul(invSamples))
					}
				}

				if progress != nil {
					progMu.Lock()
					processed++
					update := processed%threshold == 0 || processed == len(tiles)
					progMu.Unlock()
					if update {
						progress()
					}
				}
			}
		}()
	}
	wg.Wait()

	return ctx.Err()
}

// writePixel gamma corrects (gamma 2) and stores a linear color.
func writePixel(img *image.RGBA, x, y int, col vec3) {
	idx := img.PixOffset(x, y)
	img.Pix[idx] = toByte(col.x)
	img.Pix[idx+1] = toByte(col.y)
	img.Pix[idx+2] = toByte(col.z)
	img.Pix[idx+3] = 255
}

func toByte(c float64) uint8 {
	if math.IsNaN(c) {
		return 0
	}
	return uint8(clamp(math.Sqrt(math.Max(c, 0))*255.999, 0, 255.999))
}

// backgroundFor returns the color of rays that leave the scene.
func backgroundFor(sc *scene.Scene) func(ray) vec3 {
	if sc.Sky != nil && sc.Sky.Type == "gradient" {
		horizon := v(sc.Sky.Horizon.R, sc.Sky.Horizon.G, sc.Sky.Horizon.B)
		zenith := v(sc.Sky.Zenith.R, sc.Sky.Zenith.G, sc.Sky.Zenith.B)
		return func(r ray) vec3 {
			l := r.dir.length()
			if l == 0 {
				return horizon
			}
			// Map direction y from [-1, 1] to [0, 1].
			t := clamp((r.dir.y/l+1.0)*0.5, 0, 1)
			return horizon.lerp(zenith, t)
		}
	}

	bg := v(sc.Background.R, sc.Background.G, sc.Background.B)
	if sc.Sky != nil && sc.Sky.Type == "solid" {
		bg = v(sc.Sky.Color.R, sc.Sky.Color.G, sc.Sky.Color.B)
	}
	return func(ray) vec3 { return bg }
}

func rayColor(r ray, world []hittable, background func(ray) vec3, depth int, rng *randSource) vec3 {
	if depth <= 0 {
		return vec3{}
	}

	const tMin = 0.001
	var rec hitRecord
	hitAnything := false
	closest := math.MaxFloat64
	for i := range world {
		if world[i].hit(r, tMin, closest, &rec) {
			hitAnything = true
			closest = rec.t
		}
	}
	if !hitAnything {
		return background(r)
	}

	emitted := rec.mat.emitted()
	ok, attenuation, scattered := rec.mat.scatter(rng, r, &rec)
	if !ok {
		return emitted
	}
	return emitted.add(attenuation.mulVec(rayColor(scattered, world, background, depth-1, rng)))
}
