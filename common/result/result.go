// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package result

// Result bundles a value with an error into a single type, for situations
// where only one of the two can travel -- for instance through a channel or
// inside a container.
type Result[T any] struct {
	value T
	err   error
}

// Ok creates a Result representing a successful outcome with the given value.
func Ok[T any](value T) Result[T] {
	return Result[T]{value: value}
}

// Err creates a Result representing a failed outcome with the given error.
func Err[T any](err error) Result[T] {
	return Result[T]{err: err}
}

// Wrap folds a conventional (value, error) pair into a Result. A non-nil
// error takes precedence over the value.
func Wrap[T any](value T, err error) Result[T] {
	if err != nil {
		return Err[T](err)
	}
	return Ok(value)
}

// Get returns the value and error contained in the Result. Using this
// function forces the caller to handle potential errors.
func (r Result[T]) Get() (T, error) {
	return r.value, r.err
}
