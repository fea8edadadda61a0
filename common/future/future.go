// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package future provides a placeholder for a value produced by a background
// goroutine. A Promise is the producer-side handle used to fulfill a Future,
// which the consumer awaits. The typical producer looks as follows:
//
//	promise, future := future.Create[T]()
//	go func() {
//	   promise.Fulfill(someOperation())
//	}()
//	return future
//
// If the value is already at hand, Immediate creates a pre-fulfilled Future.
package future

// Promise is the handle used to fulfill a Future.
type Promise[T any] struct {
	C chan<- T
}

// Future is a placeholder for a value that will become available once the
// corresponding Promise is fulfilled. A Future can only be consumed once.
type Future[T any] struct {
	C <-chan T
}

// Create initializes a connected Promise and Future pair.
func Create[T any]() (Promise[T], Future[T]) {
	ch := make(chan T, 1)
	return Promise[T]{C: ch}, Future[T]{C: ch}
}

// Immediate creates a Future that is already fulfilled with the given value.
func Immediate[T any](value T) Future[T] {
	ch := make(chan T, 1)
	ch <- value
	close(ch)
	return Future[T]{C: ch}
}

// Fulfill provides the value awaited by the connected Future. A Promise must
// be fulfilled at most once.
func (p Promise[T]) Fulfill(value T) {
	p.C <- value
	close(p.C)
}

// Await blocks until the Future is fulfilled and returns the contained value.
func (f Future[T]) Await() T {
	return <-f.C
}

// Then derives a new Future by applying the given transformation to the
// result of the original Future once it is fulfilled.
func Then[A, B any](f Future[A], transform func(A) B) Future[B] {
	promise, future := Create[B]()
	go func() {
		promise.Fulfill(transform(f.Await()))
	}()
	return future
}
