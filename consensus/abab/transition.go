// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package abab

import (
	"sync"
	"time"
)

// transition drives the engine's view change timeouts. A background
// goroutine fires the handler whenever the interval elapses without the
// timer being rearmed; observing consensus progress rearms it.
type transition struct {
	rearm chan struct{}
	stop  chan struct{}
	done  chan struct{}
	once  sync.Once
}

func startTransition(interval time.Duration, onTimeout func()) *transition {
	t := &transition{
		rearm: make(chan struct{}, 1),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go func() {
		defer close(t.done)
		timer := time.NewTimer(interval)
		defer timer.Stop()
		for {
			select {
			case <-timer.C:
				onTimeout()
				timer.Reset(interval)
			case <-t.rearm:
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(interval)
			case <-t.stop:
				return
			}
		}
	}()
	return t
}

// Rearm restarts the timeout interval. Safe to call from any goroutine;
// redundant rearms are coalesced.
func (t *transition) Rearm() {
	select {
	case t.rearm <- struct{}{}:
	default:
	}
}

// Stop terminates the timeout loop and waits for it to exit.
func (t *transition) Stop() {
	t.once.Do(func() { close(t.stop) })
	<-t.done
}
