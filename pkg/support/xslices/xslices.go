/*
 *	Copyright 2023 Jan Pfeifer
 *
 *	Licensed under the Apache License, Version 2.0 (the "License");
 *	you may not use this file except in compliance with the License.
 *	You may obtain a copy of the License at
 *
 *	http://www.apache.org/licenses/LICENSE-2.0
 *
 *	Unless required by applicable law or agreed to in writing, software
 *	distributed under the License is distributed on an "AS IS" BASIS,
 *	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *	See the License for the specific language governing permissions and
 *	limitations under the License.
 */

// Package xslices provide missing functionality to the slices package.
package xslices

import (
	"cmp"
	"iter"
	"slices"

	"golang.org/x/exp/constraints"
)

// Last returns the last element of a slice.
func Last[T any](slice []T) T {
	return slice[len(slice)-1]
}

// Iota returns a slice of incremental values, starting with start.
// Eg: Iota(3, 2) -> []int{3, 4}
func Iota[T constraints.Integer](start T, len int) (slice []T) {
	slice = make([]T, len)
	for ii := range slice {
		slice[ii] = start + T(ii)
	}
	return
}

// Product returns the product of all elements. The product of an empty slice is 1.
func Product[T constraints.Integer | constraints.Float](slice []T) T {
	var p T = 1
	for _, v := range slice {
		p *= v
	}
	return p
}

// Map executes the given function sequentially for every element on in, and returns a mapped slice.
func Map[In, Out any](in []In, fn func(e In) Out) (out []Out) {
	out = make([]Out, len(in))
	for ii, e := range in {
		out[ii] = fn(e)
	}
	return
}

// SortedKeys returns the sorted keys of a map in the form of a slice.
func SortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	s := make([]K, 0, len(m))
	for k := range m {
		s = append(s, k)
	}
	slices.Sort(s)
	return s
}

// Permutations iterates over all the permutations of the given elements, in lexicographic order of
// their positions in the input (the first permutation yielded is the input itself).
//
// The yielded slice is reused between iterations: clone it if it needs to be kept.
func Permutations[T any](elements []T) iter.Seq[[]T] {
	return func(yield func([]T) bool) {
		n := len(elements)
		positions := Iota(0, n)
		perm := make([]T, n)
		for {
			for i, pos := range positions {
				perm[i] = elements[pos]
			}
			if !yield(perm) {
				return
			}
			// Next lexicographic permutation of positions.
			i := n - 2
			for i >= 0 && positions[i] >= positions[i+1] {
				i--
			}
			if i < 0 {
				return
			}
			j := n - 1
			for positions[j] <= positions[i] {
				j--
			}
			positions[i], positions[j] = positions[j], positions[i]
			slices.Reverse(positions[i+1:])
		}
	}
}
