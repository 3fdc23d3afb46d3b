// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package shapes

import (
	"fmt"
	"slices"
	"strings"
)

// Shape is the dimension metadata of a Tensor: its element type and its
// axis sizes. A Shape with Rank() == 0 is a scalar.
type Shape struct {
	DType      DType
	Dimensions []int
}

// Make returns the shape of a dense tensor with the given dtype and
// dimensions. No dimensions means a scalar shape.
func Make(dtype DType, dimensions ...int) Shape {
	return Shape{DType: dtype, Dimensions: slices.Clone(dimensions)}
}

// Scalar returns the scalar shape for dtype.
func Scalar(dtype DType) Shape {
	return Shape{DType: dtype}
}

// Rank is the number of axes of the shape.
func (s Shape) Rank() int { return len(s.Dimensions) }

// IsScalar reports whether s has no axes.
func (s Shape) IsScalar() bool { return s.Rank() == 0 }

// Size is the number of elements described by s, the product of its
// dimensions (1 for a scalar).
func (s Shape) Size() int {
	size := 1
	for _, d := range s.Dimensions {
		size *= d
	}
	return size
}

// Equal reports whether s and o have the same dtype and dimensions.
func (s Shape) Equal(o Shape) bool {
	return s.DType == o.DType && slices.Equal(s.Dimensions, o.Dimensions)
}

// Clone returns a deep copy of s.
func (s Shape) Clone() Shape {
	return Shape{DType: s.DType, Dimensions: slices.Clone(s.Dimensions)}
}

// String implements fmt.Stringer, pretty-printing as e.g. "(f32)[5 5]" or
// "(f32)" for a scalar.
func (s Shape) String() string {
	if s.Rank() == 0 {
		return fmt.Sprintf("(%s)", s.DType)
	}
	dims := make([]string, len(s.Dimensions))
	for i, d := range s.Dimensions {
		dims[i] = fmt.Sprint(d)
	}
	return fmt.Sprintf("(%s)[%s]", s.DType, strings.Join(dims, " "))
}
