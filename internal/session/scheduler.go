// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package session runs fixed-rate sampling sessions that end on sustained
// stillness, a hard tick cap, or a fault.
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/relabs-tech/flight_recorder/internal/config"
	"github.com/relabs-tech/flight_recorder/internal/imu"
	"github.com/relabs-tech/flight_recorder/internal/motion"
	"github.com/relabs-tech/flight_recorder/internal/record"
)

// minSleep is the shortest wait worth handing to the OS.
const minSleep = 50 * time.Microsecond

// Params are the per-session timing and detection limits.
type Params struct {
	Period      time.Duration
	GraceTicks  int
	CapTicks    int
	StatusEvery int
	Thresholds  motion.Thresholds
}

// ParamsFromConfig derives tick counts from the configured rate and windows.
func ParamsFromConfig(cfg *config.Config) Params {
	return Params{
		Period:      cfg.Period(),
		GraceTicks:  cfg.GraceTicks(),
		CapTicks:    cfg.CapTicks(),
		StatusEvery: cfg.StatusEveryTicks,
		Thresholds: motion.Thresholds{
			StillAccel: cfg.StillAccelThresh,
			StillGyro:  cfg.StillGyroThresh,
			StopTicks:  cfg.StopTicks(),
			Penalty:    cfg.MotionPenaltyTicks,
		},
	}
}

// session is the state of one run, built on start and dropped on close.
type session struct {
	info     Info
	handle   *record.Handle
	detector *motion.Detector
	t0       time.Time
	tick     int
	overruns int
}

// Scheduler drives the sampling loop. Source and sink are used only from
// the goroutine calling Run.
type Scheduler struct {
	params   Params
	source   imu.Source
	sink     record.Sink
	clock    Clock
	listener Listener

	state atomic.Int32

	mu     sync.Mutex
	status Status
}

// NewScheduler wires a scheduler. A nil clock uses the system clock and a
// nil listener discards events.
func NewScheduler(p Params, source imu.Source, sink record.Sink, clock Clock, listener Listener) *Scheduler {
	if clock == nil {
		clock = SystemClock{}
	}
	if listener == nil {
		listener = Listeners(nil)
	}
	return &Scheduler{
		params:   p,
		source:   source,
		sink:     sink,
		clock:    clock,
		listener: listener,
	}
}

// State is safe to call from any goroutine.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Snapshot returns the state and the latest published status.
func (s *Scheduler) Snapshot() (State, Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.State(), s.status
}

// Run executes one session to completion and returns to Idle.
// A non-nil error means the session was aborted by a sensor or storage
// fault; the Result is still filled in and the file is closed.
func (s *Scheduler) Run(ctx context.Context) (Result, error) {
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return Result{}, ErrAlreadyRunning
	}
	defer s.state.Store(int32(StateIdle))

	h, err := s.sink.BeginSession()
	if err != nil {
		return Result{Reason: ReasonStorageFault, Error: err.Error()}, err
	}

	if r, ok := s.source.(imu.Resetter); ok {
		r.Reset()
	}

	sess := &session{
		handle:   h,
		detector: motion.NewDetector(s.params.Thresholds),
		t0:       s.clock.Now(),
	}
	sess.detector.Reset()
	sess.info = Info{Index: h.Index, Name: h.Name, Path: h.Path, StartedAt: time.Now()}

	s.setStatus(Status{Index: h.Index})
	s.listener.SessionStarted(sess.info)

	reason, runErr := s.loop(ctx, sess)

	s.state.Store(int32(StateClosing))
	if err := s.sink.EndSession(h); err != nil {
		runErr = errors.Join(runErr, err)
		if reason != ReasonSensorFault {
			reason = ReasonStorageFault
		}
	}

	res := Result{
		Info:     sess.info,
		Ticks:    sess.tick,
		Reason:   reason,
		Duration: s.clock.Now().Sub(sess.t0),
		Overruns: sess.overruns,
	}
	if runErr != nil {
		res.Error = runErr.Error()
	}
	s.listener.SessionEnded(res)
	return res, runErr
}

func (s *Scheduler) loop(ctx context.Context, sess *session) (StopReason, error) {
	p := s.params
	for {
		// Deadlines come from the fixed origin so sleep error never accumulates.
		target := sess.t0.Add(time.Duration(sess.tick) * p.Period)
		wait := target.Sub(s.clock.Now())
		switch {
		case wait >= minSleep:
			s.clock.Sleep(wait)
		case wait < 0 && sess.tick > 0:
			sess.overruns++
		}

		select {
		case <-ctx.Done():
			return ReasonCancelled, nil
		default:
		}

		r, err := s.source.Read()
		if err != nil {
			return ReasonSensorFault, err
		}
		r.ElapsedMicros = s.clock.Now().Sub(sess.t0).Microseconds()

		if err := s.sink.Append(sess.handle, r); err != nil {
			return ReasonStorageFault, err
		}

		if sess.tick >= p.GraceTicks && !sess.detector.Armed() {
			sess.detector.Arm()
		}
		stop := sess.detector.Observe(r)
		sess.tick++

		if p.StatusEvery > 0 && sess.tick%p.StatusEvery == 0 {
			st := Status{
				Index:      sess.info.Index,
				Tick:       sess.tick,
				QuietTicks: sess.detector.QuietTicks(),
				Armed:      sess.detector.Armed(),
				AccelMagSq: r.Accel.MagSq(),
				Overruns:   sess.overruns,
				Elapsed:    s.clock.Now().Sub(sess.t0),
			}
			s.setStatus(st)
			s.listener.SessionStatus(st)
		}

		if stop {
			return ReasonStill, nil
		}
		if sess.tick >= p.CapTicks {
			return ReasonCap, nil
		}
	}
}

func (s *Scheduler) setStatus(st Status) {
	s.mu.Lock()
	s.status = st
	s.mu.Unlock()
}
