// Copyright (C) 2024 Tim Bastin, l3montree GmbH
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package utils

import "slices"

func Filter[T any](s []T, f func(T) bool) []T {
	res := make([]T, 0, len(s))
	for _, v := range s {
		if f(v) {
			res = append(res, v)
		}
	}
	return res
}

func Map[T, U any](s []T, f func(T) U) []U {
	res := make([]U, len(s))
	for i, v := range s {
		res[i] = f(v)
	}
	return res
}

func Any[T any](s []T, f func(T) bool) bool {
	return slices.ContainsFunc(s, f)
}

// UniqBy keeps the first element for every key and preserves the order.
func UniqBy[T any, K comparable](s []T, f func(T) K) []T {
	seen := make(map[K]struct{}, len(s))
	res := make([]T, 0, len(s))
	for _, v := range s {
		k := f(v)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		res = append(res, v)
	}
	return res
}

func Contains[T comparable](s []T, el T) bool {
	return slices.Contains(s, el)
}

// Chunk splits s into slices of at most size elements.
func Chunk[T any](s []T, size int) [][]T {
	if size <= 0 {
		return [][]T{s}
	}
	var res [][]T
	for size < len(s) {
		s, res = s[size:], append(res, s[:size:size])
	}
	if len(s) > 0 {
		res = append(res, s)
	}
	return res
}
