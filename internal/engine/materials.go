package engine

import (
	"math"

	"github.com/linusmossberg/light-field-renderer/internal/scene"
)

type materialType int

const (
	matLambert materialType = iota
	matMetal
	matDielectric
	matEmissive
	matMirror
)

type material struct {
	typ    materialType
	albedo vec3
	rough  float64
	ior    float64
	emit   vec3
}

func convertMaterial(m scene.Material) material {
	albedo := v(m.Albedo.R, m.Albedo.G, m.Albedo.B)

	switch m.Type {
	case scene.MaterialMetal:
		return material{typ: matMetal, albedo: albedo, rough: clamp(m.Rough, 0, 1)}
	case scene.MaterialDielectric:
		ior := m.IOR
		if ior == 0 {
			ior = 1.5
		}
		return material{typ: matDielectric, albedo: albedo, ior: ior}
	case scene.MaterialEmissive:
		power := m.Power
		if power == 0 {
			power = 1
		}
		return material{typ: matEmissive, emit: v(m.Emit.R, m.Emit.G, m.Emit.B).mul(power)}
	case scene.MaterialMirror:
		return material{typ: matMirror, albedo: albedo}
	default:
		return material{typ: matLambert, albedo: albedo, rough: clamp(m.Rough, 0, 1)}
	}
}

func clamp(x, minVal, maxVal float64) float64 {
	return math.Max(minVal, math.Min(maxVal, x))
}

func (m material) emitted() vec3 {
	if m.typ == matEmissive {
		return m.emit
	}
	return vec3{}
}

// scatter returns whether the ray continues, its attenuation and the scattered ray.
func (m material) scatter(rng *randSource, rIn ray, rec *hitRecord) (bool, vec3, ray) {
	switch m.typ {
	case matLambert:
		dir := randomCosineDirection(rec.normal, rng)
		if m.rough > 1e-6 {
			dir = dir.add(randomInUnitSphere(rng).mul(m.rough * 0.1)).unit()
		}
		return true, m.albedo, ray{orig: rec.p, dir: dir}

	case matMetal:
		if rIn.dir.lengthSq() == 0 {
			return false, vec3{}, ray{}
		}
		reflected := reflectVec(rIn.dir.unit(), rec.normal)
		if m.rough <= 1e-6 {
			return true, m.albedo, ray{orig: rec.p, dir: reflected}
		}
		// Blend the mirror direction with a cosine lobe around it.
		alpha := m.rough * m.rough
		dir := reflected.lerp(randomCosineDirection(reflected, rng), alpha)
		if dir.lengthSq() < 1e-8 || dir.dot(rec.normal) <= 0 {
			dir = reflected
		}
		return true, m.albedo, ray{orig: rec.p, dir: dir.unit()}

	case matDielectric:
		ratio := m.ior
		if rec.frontFace {
			ratio = 1.0 / m.ior
		}
		if rIn.dir.lengthSq() == 0 {
			return false, vec3{}, ray{}
		}
		unitDir := rIn.dir.unit()
		cosTheta := math.Min(unitDir.mul(-1).dot(rec.normal), 1.0)
		sinTheta := math.Sqrt(1.0 - cosTheta*cosTheta)

		var dir vec3
		if ratio*sinTheta > 1.0 || reflectance(cosTheta, ratio) > rng.Float64() {
			dir = reflectVec(unitDir, rec.normal)
		} else {
			dir = refractVec(unitDir, rec.normal, ratio)
		}
		return true, v(1, 1, 1), ray{orig: rec.p, dir: dir}

	case matMirror:
		if rIn.dir.lengthSq() == 0 {
			return false, vec3{}, ray{}
		}
		return true, m.albedo, ray{orig: rec.p, dir: reflectVec(rIn.dir.unit(), rec.normal)}
	}
	return false, vec3{}, ray{}
}

// reflectance is Schlick's approximation.
func reflectance(cosine, refIdx float64) float64 {
	r0 := (1 - refIdx) / (1 + refIdx)
	r0 = r0 * r0
	return r0 + (1-r0)*math.Pow(1-cosine, 5)
}
