package engine

import (
	"math"

	"github.com/linusmossberg/light-field-renderer/internal/scene"
)

type hitRecord struct {
	p         vec3
	normal    vec3
	t         float64
	frontFace bool
	mat       material
}

func (h *hitRecord) setFaceNormal(r ray, outwardNormal vec3) {
	h.frontFace = r.dir.dot(outwardNormal) < 0
	if h.frontFace {
		h.normal = outwardNormal
	} else {
		h.normal = outwardNormal.mul(-1)
	}
}

type hittable interface {
	hit(r ray, tMin, tMax float64, rec *hitRecord) bool
}

type sphere struct {
	center vec3
	radius float64
	mat    material
}

func (s sphere) hit(r ray, tMin, tMax float64, rec *hitRecord) bool {
	oc := r.orig.sub(s.center)
	a := r.dir.lengthSq()
	halfB := oc.dot(r.dir)
	c := oc.lengthSq() - s.radius*s.radius

	discriminant := halfB*halfB - a*c
	if discriminant < 0 {
		return false
	}
	sqrtD := math.Sqrt(discriminant)

	root := (-halfB - sqrtD) / a
	if root < tMin || root > tMax {
		root = (-halfB + sqrtD) / a
		if root < tMin || root > tMax {
			return false
		}
	}

	rec.t = root
	rec.p = r.at(root)
	rec.setFaceNormal(r, rec.p.sub(s.center).div(s.radius))
	rec.mat = s.mat
	return true
}

// plane is an infinite horizontal plane through point.
type plane struct {
	point  vec3
	normal vec3
	mat    material
}

func (p plane) hit(r ray, tMin, tMax float64, rec *hitRecord) bool {
	denom := p.normal.dot(r.dir)
	if math.Abs(denom) < 1e-6 {
		return false
	}
	t := p.point.sub(r.orig).dot(p.normal) / denom
	if t < tMin || t > tMax {
		return false
	}

	rec.t = t
	rec.p = r.at(t)
	rec.setFaceNormal(r, p.normal)
	rec.mat = p.mat
	return true
}

// box is axis aligned.
type box struct {
	min, max vec3
	mat      material
}

func (b box) hit(r ray, tMin, tMax float64, rec *hitRecord) bool {
	t0, t1 := tMin, tMax
	orig := [3]float64{r.orig.x, r.orig.y, r.orig.z}
	dir := [3]float64{r.dir.x, r.dir.y, r.dir.z}
	lo := [3]float64{b.min.x, b.min.y, b.min.z}
	hi := [3]float64{b.max.x, b.max.y, b.max.z}

	for i := 0; i < 3; i++ {
		invD := 1 / dir[i]
		tNear := (lo[i] - orig[i]) * invD
		tFar := (hi[i] - orig[i]) * invD
		if invD < 0 {
			tNear, tFar = tFar, tNear
		}
		t0 = math.Max(t0, tNear)
		t1 = math.Min(t1, tFar)
		if t1 <= t0 {
			return false
		}
	}

	rec.t = t0
	rec.p = r.at(t0)
	rec.setFaceNormal(r, b.faceNormal(rec.p))
	rec.mat = b.mat
	return true
}

func (b box) faceNormal(p vec3) vec3 {
	const eps = 1e-4
	switch {
	case math.Abs(p.x-b.min.x) < eps:
		return v(-1, 0, 0)
	case math.Abs(p.x-b.max.x) < eps:
		return v(1, 0, 0)
	case math.Abs(p.y-b.min.y) < eps:
		return v(0, -1, 0)
	case math.Abs(p.y-b.max.y) < eps:
		return v(0, 1, 0)
	case math.Abs(p.z-b.min.z) < eps:
		return v(0, 0, -1)
	default:
		return v(0, 0, 1)
	}
}

// sceneToWorld builds the hittable list from a scene description.
func sceneToWorld(sc *scene.Scene) []hittable {
	materials := make(map[string]material, len(sc.Materials))
	for _, m := range sc.Materials {
		materials[m.ID] = convertMaterial(m)
	}

	world := make([]hittable, 0, len(sc.Objects))
	for _, o := range sc.Objects {
		mat := materials[o.MaterialID]
		pos := fromR3(o.Position.R3())
		size := fromR3(o.Size.R3())

		switch o.Type {
		case scene.ObjectSphere, scene.ObjectSphereLight:
			world = append(world, sphere{center: pos, radius: size.x, mat: mat})
		case scene.ObjectPlane:
			world = append(world, plane{point: pos, normal: v(0, 1, 0), mat: mat})
		case scene.ObjectBox:
			half := size.mul(0.5)
			world = append(world, box{min: pos.sub(half), max: pos.add(half), mat: mat})
		}
	}
	return world
}
