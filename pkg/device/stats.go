package device

import "github.com/arunika/dollcore/pkg/transport"

// Stats is a point-in-time snapshot of the controller merged with the
// transport's counters. The console prints it and the events stream
// carries it.
type Stats struct {
	State         State           `json:"state"`
	ErrorKind     ErrorKind       `json:"error_kind"`
	LastError     ErrorKind       `json:"last_error"`
	SessionEpoch  uint32          `json:"session_epoch"`
	Battery       int             `json:"battery"`
	Charging      bool            `json:"charging"`
	Transitions   uint64          `json:"transitions"`
	Recordings    uint64          `json:"recordings"`
	Timeouts      uint64          `json:"timeouts"`
	Faults        uint64          `json:"faults"`
	Reconnects    uint32          `json:"reconnects"`
	PlaybackDrops uint64          `json:"playback_drops"`
	Transport     transport.Stats `json:"transport"`
}

// Published returns the snapshot taken at the end of the last loop pass.
// Unlike Stats it is safe from any goroutine; the run console reads it
// while the loop owns the controller.
func (c *Controller) Published() Stats {
	if s := c.published.Load(); s != nil {
		return *s
	}
	return Stats{}
}

func (c *Controller) publishStats() {
	s := c.Stats()
	c.published.Store(&s)
}

// Stats snapshots the controller's counters.
func (c *Controller) Stats() Stats {
	epoch := c.cfg.Link.SessionEpoch()
	var reconnects uint32
	if epoch > 0 {
		reconnects = epoch - 1
	}
	return Stats{
		State:         c.state,
		ErrorKind:     c.ErrorKind(),
		LastError:     c.lastErr,
		SessionEpoch:  epoch,
		Battery:       c.cfg.HW.Power.BatteryPercent(),
		Charging:      c.cfg.HW.Power.Charging(),
		Transitions:   c.transitions,
		Recordings:    c.recordings,
		Timeouts:      c.timeouts,
		Faults:        c.faults,
		Reconnects:    reconnects,
		PlaybackDrops: c.cfg.Playback.Rejected(),
		Transport:     c.cfg.Transport.Stats(),
	}
}
