// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package app wires the recorder together: sampling sessions, the command
// server and the optional peripherals that report on them.
package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/relabs-tech/flight_recorder/internal/config"
	"github.com/relabs-tech/flight_recorder/internal/gps"
	"github.com/relabs-tech/flight_recorder/internal/record"
	"github.com/relabs-tech/flight_recorder/internal/sensors"
	"github.com/relabs-tech/flight_recorder/internal/session"
)

const shutdownTimeout = 5 * time.Second

// RunRecorder opens the sensor and serves start requests until ctx is done.
// A session in progress when ctx ends is closed with reason "cancelled".
func RunRecorder(ctx context.Context) error {
	cfg := config.Get()

	src, err := sensors.Open(cfg)
	if err != nil {
		return fmt.Errorf("recorder: %w", err)
	}
	defer src.Close()

	sink := record.NewDirSink(cfg.SessionDir, cfg.SessionPrefix, cfg.SessionSuffix, cfg.SyncEveryTicks)

	bus := NewEventBus(256)
	console := &ConsoleLogger{TargetHz: cfg.SampleRateHz}
	bus.Subscribe(console.Handle)

	hub := NewHub()
	bus.Subscribe(hub.Handle)

	var tracker *gps.Tracker
	if cfg.GPSSerialPort != "" {
		tracker = gps.NewTracker()
		bus.FixSource = tracker.Latest
	}

	if cfg.MQTTBroker != "" {
		pub, err := NewMQTTPublisher(cfg.MQTTBroker, cfg.MQTTClientID, cfg.TopicSession)
		if err != nil {
			log.Printf("recorder: MQTT disabled: %v", err)
		} else {
			defer pub.Close()
			bus.Subscribe(pub.Handle)
		}
	}

	if cfg.StatusLEDPin != "" {
		led, err := OpenStatusLED(cfg.StatusLEDPin)
		if err != nil {
			log.Printf("recorder: status LED disabled: %v", err)
		} else {
			bus.Subscribe(led.Handle)
		}
	}

	sched := session.NewScheduler(session.ParamsFromConfig(cfg), src, sink, nil, bus)
	ctrl := session.NewController(sched)

	web := NewCommandServer(fmt.Sprintf(":%d", cfg.WebServerPort), cfg.WebRoot, ctrl, sink, hub)
	if cfg.SuspendWebDuringSession {
		ctrl.BeforeSession = func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := web.Stop(stopCtx); err != nil {
				log.Printf("recorder: %v", err)
			}
		}
		ctrl.AfterSession = func(session.Result, error) {
			if ctx.Err() != nil {
				return
			}
			if err := web.Start(); err != nil {
				log.Printf("recorder: %v", err)
			}
		}
	}

	var display *StatusDisplay
	if cfg.DisplayI2CBus != "" {
		fixes := bus.FixSource
		display = NewStatusDisplay(sched, fixes, time.Duration(cfg.DisplayUpdateInterval)*time.Millisecond)
		bus.Subscribe(display.Handle)
	}

	if err := web.Start(); err != nil {
		return err
	}

	// The bus outlives the controller so the final ended event is delivered.
	busCtx, busCancel := context.WithCancel(context.Background())
	defer busCancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return bus.Run(busCtx)
	})

	g.Go(func() error {
		defer busCancel()
		return ctrl.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return web.Stop(stopCtx)
	})

	if tracker != nil {
		g.Go(func() error {
			if err := tracker.Run(gctx, cfg.GPSSerialPort, cfg.GPSBaudRate); err != nil {
				log.Printf("recorder: GPS disabled: %v", err)
			}
			return nil
		})
	}

	if display != nil {
		busName := cfg.DisplayI2CBus
		if busName == "-" {
			busName = ""
		}
		g.Go(func() error {
			if err := display.Run(gctx, busName); err != nil {
				log.Printf("recorder: display disabled: %v", err)
			}
			return nil
		})
	}

	log.Printf("recorder: ready, sessions in %s, POST /startLog to begin", cfg.SessionDir)
	err = g.Wait()
	if n := bus.Dropped(); n > 0 {
		log.Printf("recorder: %d events dropped", n)
	}
	return err
}
