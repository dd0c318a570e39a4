// Package tensor lowers multi-dimensional arrays to a flat row-major sequence
// plus a shape descriptor, and reconstructs them again.
package tensor

import (
	"errors"
	"fmt"

	"github.com/ericnjogu/video-object-detection/internal/types"
)

// ErrShapeMismatch is returned when a shape does not describe the values it accompanies.
var ErrShapeMismatch = errors.New("shape does not match number of values")

// Number is any element type that can travel in a tensor.
type Number interface {
	~uint8 | ~int32 | ~int64 | ~float32 | ~float64
}

// Tensor is the wire form of an N-D array: values in row-major order and the
// size of each dimension.
type Tensor[T Number] struct {
	Values []T
	Shape  []int
}

// New validates that shape covers exactly len(values) elements.
func New[T Number](values []T, shape ...int) (Tensor[T], error) {
	t := Tensor[T]{Values: values, Shape: append([]int(nil), shape...)}
	if err := t.Validate(); err != nil {
		return Tensor[T]{}, err
	}
	return t, nil
}

// Size is the element count implied by the shape.
func Size(shape []int) int {
	if len(shape) == 0 {
		return 0
	}
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// Validate checks the shape against the values.
func (t Tensor[T]) Validate() error {
	for _, d := range t.Shape {
		if d < 0 {
			return fmt.Errorf("%w: negative dimension in %v", ErrShapeMismatch, t.Shape)
		}
	}
	if Size(t.Shape) != len(t.Values) {
		return fmt.Errorf("%w: shape %v wants %d, have %d", ErrShapeMismatch, t.Shape, Size(t.Shape), len(t.Values))
	}
	return nil
}

// Offset returns the flat position of the element at idx.
func (t Tensor[T]) Offset(idx ...int) (int, error) {
	if len(idx) != len(t.Shape) {
		return 0, fmt.Errorf("%w: %d indices for rank %d", ErrShapeMismatch, len(idx), len(t.Shape))
	}
	off := 0
	for i, v := range idx {
		if v < 0 || v >= t.Shape[i] {
			return 0, fmt.Errorf("index %d out of range for dimension %d (size %d)", v, i, t.Shape[i])
		}
		off = off*t.Shape[i] + v
	}
	return off, nil
}

// At returns the element at idx.
func (t Tensor[T]) At(idx ...int) (T, error) {
	off, err := t.Offset(idx...)
	if err != nil {
		var zero T
		return zero, err
	}
	return t.Values[off], nil
}

// Rows returns the number of entries along the first axis.
func (t Tensor[T]) Rows() int {
	if len(t.Shape) == 0 {
		return 0
	}
	return t.Shape[0]
}

// rowLen is the number of flat values in one entry of the first axis.
func (t Tensor[T]) rowLen() int {
	if len(t.Shape) <= 1 {
		return 1
	}
	return Size(t.Shape[1:])
}

// Row returns a view of entry i along the first axis.
func (t Tensor[T]) Row(i int) []T {
	n := t.rowLen()
	return t.Values[i*n : (i+1)*n]
}

// SelectRows keeps the entries along the first axis whose mask is true,
// preserving order. The remaining dimensions are untouched.
func SelectRows[T Number](t Tensor[T], mask []bool) (Tensor[T], error) {
	if err := t.Validate(); err != nil {
		return Tensor[T]{}, err
	}
	if len(mask) != t.Rows() {
		return Tensor[T]{}, fmt.Errorf("%w: mask of %d for %d rows", ErrShapeMismatch, len(mask), t.Rows())
	}
	kept := 0
	values := make([]T, 0, len(t.Values))
	for i, keep := range mask {
		if keep {
			values = append(values, t.Row(i)...)
			kept++
		}
	}
	shape := append([]int{kept}, t.Shape[1:]...)
	return Tensor[T]{Values: values, Shape: shape}, nil
}

// FromBoxes flattens an n x 4 box array.
func FromBoxes(boxes []types.Box) Tensor[float32] {
	values := make([]float32, 0, len(boxes)*4)
	for _, b := range boxes {
		values = append(values, b[:]...)
	}
	return Tensor[float32]{Values: values, Shape: []int{len(boxes), 4}}
}

// Boxes reshapes an n x 4 tensor back into boxes.
func (t Tensor[T]) Boxes() ([]types.Box, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if len(t.Shape) != 2 || t.Shape[1] != 4 {
		return nil, fmt.Errorf("%w: boxes need shape [n 4], got %v", ErrShapeMismatch, t.Shape)
	}
	boxes := make([]types.Box, t.Shape[0])
	for i := range boxes {
		for j, v := range t.Row(i) {
			boxes[i][j] = float32(v)
		}
	}
	return boxes, nil
}

// FromFrame wraps a frame's pixels without copying or converting them.
func FromFrame(f types.FrameTensor) Tensor[uint8] {
	return Tensor[uint8]{Values: f.Pix, Shape: f.Shape()}
}

// Frame reshapes a height x width x channel tensor into a frame.
func (t Tensor[T]) Frame() (types.FrameTensor, error) {
	if err := t.Validate(); err != nil {
		return types.FrameTensor{}, err
	}
	if len(t.Shape) != 3 {
		return types.FrameTensor{}, fmt.Errorf("%w: frame needs rank 3, got %v", ErrShapeMismatch, t.Shape)
	}
	pix := make([]uint8, len(t.Values))
	for i, v := range t.Values {
		pix[i] = uint8(v)
	}
	return types.FrameTensor{Pix: pix, Height: t.Shape[0], Width: t.Shape[1], Channels: t.Shape[2]}, nil
}

// Convert changes the element type. Callers use it only where every value is
// exactly representable in U, as with 8-bit pixels widened to float32.
func Convert[U, T Number](t Tensor[T]) Tensor[U] {
	values := make([]U, len(t.Values))
	for i, v := range t.Values {
		values[i] = U(v)
	}
	return Tensor[U]{Values: values, Shape: append([]int(nil), t.Shape...)}
}
