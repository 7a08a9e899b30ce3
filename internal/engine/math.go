package engine

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// vec3 is the renderer's hot-path vector. Scene and pose code uses r3.Vec and
// converts at the boundary.
type vec3 struct {
	x, y, z float64
}

func v(x, y, z float64) vec3 { return vec3{x, y, z} }

func fromR3(p r3.Vec) vec3 { return vec3{p.X, p.Y, p.Z} }

func (a vec3) add(b vec3) vec3    { return vec3{a.x + b.x, a.y + b.y, a.z + b.z} }
func (a vec3) sub(b vec3) vec3    { return vec3{a.x - b.x, a.y - b.y, a.z - b.z} }
func (a vec3) mul(t float64) vec3 { return vec3{a.x * t, a.y * t, a.z * t} }
func (a vec3) mulVec(b vec3) vec3 { return vec3{a.x * b.x, a.y * b.y, a.z * b.z} }
func (a vec3) div(t float64) vec3 { return a.mul(1 / t) }
func (a vec3) dot(b vec3) float64 { return a.x*b.x + a.y*b.y + a.z*b.z }
func (a vec3) length() float64    { return math.Sqrt(a.dot(a)) }
func (a vec3) lengthSq() float64  { return a.dot(a) }

func (a vec3) lerp(b vec3, t float64) vec3 { return a.mul(1 - t).add(b.mul(t)) }

func (a vec3) cross(b vec3) vec3 {
	return v(
		a.y*b.z-a.z*b.y,
		a.z*b.x-a.x*b.z,
		a.x*b.y-a.y*b.x,
	)
}

func (a vec3) unit() vec3 {
	l := a.length()
	if l == 0 {
		return a
	}
	return a.div(l)
}

func reflectVec(d, n vec3) vec3 {
	return d.sub(n.mul(2 * d.dot(n)))
}

func refractVec(uv, n vec3, etaiOverEtat float64) vec3 {
	cosTheta := math.Min(uv.mul(-1).dot(n), 1.0)
	perp := uv.add(n.mul(cosTheta)).mul(etaiOverEtat)
	parallel := n.mul(-math.Sqrt(math.Abs(1.0 - perp.lengthSq())))
	return perp.add(parallel)
}

func randomInUnitSphere(rng *randSource) vec3 {
	for {
		p := v(rng.Float64()*2-1, rng.Float64()*2-1, rng.Float64()*2-1)
		if p.lengthSq() < 1 {
			return p
		}
	}
}

func randomInUnitDisk(rng *randSource) vec3 {
	for {
		p := v(rng.Float64()*2-1, rng.Float64()*2-1, 0)
		if p.lengthSq() < 1 {
			return p
		}
	}
}

// randomCosineDirection samples the hemisphere around normal with a cosine
// weighted distribution, the pdf of a Lambertian surface.
func randomCosineDirection(normal vec3, rng *randSource) vec3 {
	r1 := rng.Float64()
	r2 := rng.Float64()

	phi := 2.0 * math.Pi * r1
	cosTheta := math.Sqrt(r2)
	sinTheta := math.Sqrt(1.0 - r2)

	a := v(1, 0, 0)
	if math.Abs(normal.x) > 0.9 {
		a = v(0, 1, 0)
	}
	w := normal
	t := w.cross(a).unit()
	s := t.cross(w)

	return s.mul(sinTheta * math.Cos(phi)).
		add(t.mul(sinTheta * math.Sin(phi))).
		add(w.mul(cosTheta))
}

type ray struct {
	orig vec3
	dir  vec3
}

func (r ray) at(t float64) vec3 {
	return r.orig.add(r.dir.mul(t))
}
