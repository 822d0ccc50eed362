package model

// curveK controls how strongly the response is compressed around zero.
const curveK = 4

// Shape maps a linear throttle in [-1,1] onto a cubic response curve with the
// same bounds. Low inputs are attenuated for fine control at low speed while
// -1, 0 and 1 map onto themselves.
func Shape(x float64) float64 {
	return (x*x*x*(curveK-1) + x) / curveK
}
