package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sigil/internal/trace"
)

// crashRingSize bounds the events kept for crash reports when no ring
// tracer was requested.
const crashRingSize = 512

// setupTracing builds the tracer from the merged configuration. A ring
// tracer at phase level always runs so a crash can show what led to it.
func (a *app) setupTracing(cmd *cobra.Command) error {
	root := cmd.Root()

	ringSize, err := root.PersistentFlags().GetInt("trace-ring-size")
	if err != nil {
		return fmt.Errorf("failed to get trace-ring-size flag: %w", err)
	}
	heartbeatInterval, err := root.PersistentFlags().GetDuration("trace-heartbeat")
	if err != nil {
		return fmt.Errorf("failed to get trace-heartbeat flag: %w", err)
	}

	level, err := trace.ParseLevel(a.cfg.Trace.Level)
	if err != nil {
		return fmt.Errorf("invalid trace level: %w", err)
	}
	mode, err := trace.ParseMode(a.cfg.Trace.Mode)
	if err != nil {
		return fmt.Errorf("invalid trace mode: %w", err)
	}

	if ringSize <= 0 {
		ringSize = crashRingSize
	}
	a.ring = trace.NewRingTracer(ringSize, max(level, trace.LevelPhase))
	tracers := []trace.Tracer{a.ring}

	if level != trace.LevelOff && mode != trace.ModeRing {
		// the ring above already covers ring storage
		user, err := trace.New(trace.Config{
			Level:      level,
			Mode:       trace.ModeStream,
			OutputPath: a.cfg.Trace.Output,
		})
		if err != nil {
			return fmt.Errorf("failed to create tracer: %w", err)
		}
		tracers = append(tracers, user)
	}
	a.tracer = trace.NewMultiTracer(max(level, trace.LevelPhase), tracers...)

	ctx := trace.WithTracer(a.context(cmd), a.tracer)
	cmd.SetContext(ctx)
	root.SetContext(ctx)

	var heartbeat *trace.Heartbeat
	if heartbeatInterval > 0 {
		heartbeat = trace.StartHeartbeat(a.tracer, heartbeatInterval)
	}

	a.cleanup = func() {
		if heartbeat != nil {
			heartbeat.Stop()
		}
		if err := a.tracer.Flush(); err != nil {
			fmt.Fprintf(a.stderr, "trace: flush error: %v\n", err)
		}
		if err := a.tracer.Close(); err != nil {
			fmt.Fprintf(a.stderr, "trace: close error: %v\n", err)
		}
	}
	return nil
}
