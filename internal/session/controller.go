// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package session

import (
	"context"
	"log"
	"sync/atomic"
)

// Controller accepts start triggers from any goroutine and runs the
// requested sessions one at a time on the goroutine calling Run.
type Controller struct {
	sched    *Scheduler
	requests chan struct{}
	pending  atomic.Bool

	// BeforeSession and AfterSession run on the Run goroutine around each
	// session, e.g. to suspend network services.
	BeforeSession func()
	AfterSession  func(Result, error)
}

// NewController returns a controller for sched.
func NewController(sched *Scheduler) *Controller {
	return &Controller{
		sched:    sched,
		requests: make(chan struct{}, 1),
	}
}

// Start requests a new session and returns immediately.
// It fails with ErrAlreadyRunning while a session is requested or active.
func (c *Controller) Start() error {
	if c.sched.State() != StateIdle || !c.pending.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	// pending guarantees the buffer slot is free
	c.requests <- struct{}{}
	return nil
}

// Scheduler returns the scheduler driven by this controller.
func (c *Controller) Scheduler() *Scheduler {
	return c.sched
}

// Run blocks waiting for start requests until ctx is done. Session faults
// are logged and never end the loop.
func (c *Controller) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.requests:
		}

		if c.BeforeSession != nil {
			c.BeforeSession()
		}

		res, err := c.sched.Run(ctx)
		if err != nil {
			log.Printf("session: %s aborted (%s) after %d ticks: %v", res.Name, res.Reason, res.Ticks, err)
		}
		c.pending.Store(false)

		if c.AfterSession != nil {
			c.AfterSession(res, err)
		}
	}
}
