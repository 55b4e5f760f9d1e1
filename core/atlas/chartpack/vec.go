package chartpack

import "math"

type vec3 [3]float64

func (a vec3) sub(b vec3) vec3 {
	return vec3{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

func (a vec3) scale(f float64) vec3 {
	return vec3{a[0] * f, a[1] * f, a[2] * f}
}

func (a vec3) dot(b vec3) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func (a vec3) cross(b vec3) vec3 {
	return vec3{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func (a vec3) length() float64 {
	return math.Sqrt(a.dot(a))
}
