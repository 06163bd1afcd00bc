package app

import (
	"log"
	"time"
)

// ConsoleLogger prints session diagnostics to the process log.
type ConsoleLogger struct {
	// TargetHz is the configured sampling rate; status lines below 90% of
	// it are flagged as degraded.
	TargetHz int

	lastOverruns int
}

// Handle is an EventBus subscriber.
func (c *ConsoleLogger) Handle(ev Event) {
	switch ev.Type {
	case EventStarted:
		c.lastOverruns = 0
		log.Printf("session: logging to %s", ev.Info.Path)
		if ev.Fix != nil {
			log.Printf("session: position %.6f,%.6f (%s)", ev.Fix.Latitude, ev.Fix.Longitude, ev.Fix.Validity)
		}

	case EventStatus:
		st := ev.Status
		log.Printf("session: tick=%d quiet=%d accel2=%.2f", st.Tick, st.QuietTicks, st.AccelMagSq)
		if st.Overruns > c.lastOverruns {
			rate := st.AchievedRate()
			if c.TargetHz > 0 && rate < 0.9*float64(c.TargetHz) {
				log.Printf("session: degraded rate %.1f Hz (target %d Hz), %d overruns", rate, c.TargetHz, st.Overruns)
			} else {
				log.Printf("session: %d overruns so far", st.Overruns)
			}
			c.lastOverruns = st.Overruns
		}

	case EventEnded:
		res := ev.Result
		log.Printf("session: logged for %.1f seconds (%d records, reason=%s)",
			res.Duration.Round(time.Millisecond).Seconds(), res.Ticks, res.Reason)
		if res.Error != "" {
			log.Printf("session: %s ended with error: %s", res.Name, res.Error)
		}
	}
}
