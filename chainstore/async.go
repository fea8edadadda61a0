// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package chainstore

import (
	"errors"
	"fmt"
	"sync"

	"github.com/0xsoniclabs/abab/chain"
	"github.com/0xsoniclabs/abab/common/future"
	"github.com/0xsoniclabs/abab/common/result"
	"github.com/ethereum/go-ethereum/common"
)

// AsyncStore wraps another store and applies writes asynchronously in a
// background goroutine, allowing block import to continue while headers are
// persisted. Reads synchronize with the worker before delegating, so they
// always observe all writes issued before them.
type AsyncStore struct {
	inner Store

	// Controls for interacting with the background worker.
	commands chan<- command  // < commands to background worker
	syncs    <-chan struct{} // < signalled when syncing with background worker
	done     <-chan struct{} // < when background work is done

	issues issueCollector // < issues identified by background worker
}

// command represents an operation to be performed by the background worker.
// There are three types of commands:
// 1. Put command: persists a header.
// 2. Head command: requests the current head hash after pending writes.
// 3. Sync command: signals the worker to flush all pending writes and report
// any issues. Sync commands are represented by a command with both fields
// set to nil.
type command struct {
	put  *chain.Header
	head *future.Promise[result.Result[common.Hash]]
}

// NewAsyncStore wraps the given store with a background write worker. The
// wrapper owns the inner store and closes it on Close.
func NewAsyncStore(inner Store) *AsyncStore {
	commands := make(chan command, 1024)
	syncs := make(chan struct{})
	done := make(chan struct{})

	store := &AsyncStore{
		inner:    inner,
		commands: commands,
		syncs:    syncs,
		done:     done,
	}
	go func() {
		defer close(done)
		processCommands(inner, commands, syncs, &store.issues)
	}()
	return store
}

func processCommands(
	inner Store,
	commands <-chan command,
	syncs chan<- struct{},
	issues *issueCollector,
) {
	for command := range commands {
		if command.put != nil {
			issues.HandleIssue(inner.Put(command.put))
		} else if command.head != nil {
			header, err := inner.Head()
			if err != nil {
				command.head.Fulfill(result.Err[common.Hash](err))
			} else {
				command.head.Fulfill(result.Ok(header.Hash()))
			}
		} else { // sync command
			syncs <- struct{}{}
		}
	}
}

// Put queues the header for insertion. Write errors surface on the next
// Flush, Check, or Close.
func (s *AsyncStore) Put(header *chain.Header) error {
	s.commands <- command{put: header.Copy()}
	return nil
}

// HeadHash returns a future resolving to the head hash once all writes queued
// before the call have been applied.
func (s *AsyncStore) HeadHash() future.Future[result.Result[common.Hash]] {
	promise, head := future.Create[result.Result[common.Hash]]()
	s.commands <- command{head: &promise}
	return head
}

func (s *AsyncStore) Get(hash common.Hash) (*chain.Header, error) {
	if err := s.sync(); err != nil {
		return nil, err
	}
	return s.inner.Get(hash)
}

func (s *AsyncStore) Canonical(number uint64) (*chain.Header, error) {
	if err := s.sync(); err != nil {
		return nil, err
	}
	return s.inner.Canonical(number)
}

func (s *AsyncStore) Head() (*chain.Header, error) {
	if err := s.sync(); err != nil {
		return nil, err
	}
	return s.inner.Head()
}

// Check reports issues collected by the background worker so far.
func (s *AsyncStore) Check() error {
	return s.issues.Collect()
}

func (s *AsyncStore) Flush() error {
	if err := s.sync(); err != nil {
		return err
	}
	return s.inner.Flush()
}

func (s *AsyncStore) Close() error {
	close(s.commands)
	<-s.done
	return errors.Join(s.issues.Collect(), s.inner.Close())
}

// sync blocks until the worker has drained all previously queued commands.
func (s *AsyncStore) sync() error {
	s.commands <- command{}
	<-s.syncs
	return s.issues.Collect()
}

// issueCollector collects issues encountered during background processing.
// It limits the number of stored issues to avoid excessive memory usage.
// Only the first 10 issues are stored; any additional issues are counted
// but not stored in detail.
type issueCollector struct {
	issues      []error // < collected issues
	extraIssues int     // < count of additional issues beyond stored ones
	mutex       sync.Mutex
}

func (c *issueCollector) HandleIssue(err error) {
	if err == nil {
		return
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if len(c.issues) < 10 {
		c.issues = append(c.issues, err)
	} else {
		c.extraIssues++
	}
}

func (c *issueCollector) Collect() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.extraIssues > 0 {
		c.issues = append(c.issues, fmt.Errorf("%d additional errors truncated", c.extraIssues))
	}
	res := errors.Join(c.issues...)
	c.issues = c.issues[:0]
	c.extraIssues = 0
	return res
}
