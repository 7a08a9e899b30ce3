package engine

import (
	"math"

	"github.com/linusmossberg/light-field-renderer/internal/scene"
)

type camera struct {
	origin          vec3
	lowerLeftCorner vec3
	horizontal      vec3
	vertical        vec3
	u, v, w         vec3
	lensRadius      float64
}

func newCamera(scCam scene.Camera, cfg RenderConfig) camera {
	aspect := float64(cfg.Width) / float64(cfg.Height)
	if scCam.AspectRatio != 0 {
		aspect = scCam.AspectRatio
	}

	// Viewport size at unit distance.
	var viewportWidth, viewportHeight float64
	if scCam.Lens > 0 {
		focal, sensor := scCam.LensParams(aspect)
		viewportWidth = sensor / focal
		viewportHeight = viewportWidth / aspect
	} else {
		theta := scCam.FOV * math.Pi / 180
		viewportHeight = 2.0 * math.Tan(theta/2)
		viewportWidth = aspect * viewportHeight
	}

	right, up, back := scCam.Frame()
	origin := fromR3(scCam.Position.R3())
	u, vv, w := fromR3(right), fromR3(up), fromR3(back)

	focusDist := scCam.FocusDist
	if focusDist == 0 {
		focusDist = origin.sub(fromR3(scCam.Target.R3())).length()
	}

	horizontal := u.mul(viewportWidth * focusDist)
	vertical := vv.mul(viewportHeight * focusDist)
	lowerLeftCorner := origin.sub(horizontal.div(2)).sub(vertical.div(2)).sub(w.mul(focusDist))

	return camera{
		origin:          origin,
		lowerLeftCorner: lowerLeftCorner,
		horizontal:      horizontal,
		vertical:        vertical,
		u:               u,
		v:               vv,
		w:               w,
		lensRadius:      scCam.Aperture / 2,
	}
}

// getRay returns the ray through viewport coordinates (s, t) in [0, 1].
func (c camera) getRay(s, t float64, rng *randSource) ray {
	target := c.lowerLeftCorner.add(c.horizontal.mul(s)).add(c.vertical.mul(t))
	if c.lensRadius > 0 {
		rd := randomInUnitDisk(rng).mul(c.lensRadius)
		offset := c.u.mul(rd.x).add(c.v.mul(rd.y))
		orig := c.origin.add(offset)
		return ray{orig: orig, dir: target.sub(orig)}
	}
	return ray{orig: c.origin, dir: target.sub(c.origin)}
}
