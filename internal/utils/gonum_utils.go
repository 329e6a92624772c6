package utils

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

func AddVec(a, b *mat.VecDense) *mat.VecDense {
	if a.Len() != b.Len() {
		panic("Two vectors should have the same length.")
	}

	ret := mat.NewVecDense(a.Len(), nil)
	ret.AddVec(a, b)

	return ret
}

// DivElemVec divides used by total element by element. A zero total is an
// error rather than a silent zero.
func DivElemVec(used *mat.VecDense, total *mat.VecDense) (*mat.VecDense, error) {
	if used.Len() != total.Len() {
		panic("Two vectors should have the same length.")
	}

	for i := 0; i < total.Len(); i++ {
		if total.AtVec(i) == 0 {
			return nil, fmt.Errorf("total of dimension %d is zero", i)
		}
	}

	ret := mat.NewVecDense(used.Len(), nil)
	ret.DivElemVec(used, total)

	return ret, nil
}

// FirstGreater returns the first index where a > b, or -1.
func FirstGreater(a, b *mat.VecDense) int {
	if a.Len() != b.Len() {
		panic("Two vectors should have the same length.")
	}

	for i := 0; i < a.Len(); i++ {
		if a.AtVec(i) > b.AtVec(i) {
			return i
		}
	}

	return -1
}
