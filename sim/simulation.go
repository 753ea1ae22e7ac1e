package sim

import (
	"context"
	"fmt"

	"github.com/pthm-cable/symbiosis/config"
	"github.com/pthm-cable/symbiosis/event"
	"github.com/pthm-cable/symbiosis/rng"
	"github.com/pthm-cable/symbiosis/sponge"
	"github.com/pthm-cable/symbiosis/telemetry"
)

// Options holds the optional collaborators of a run. Zero values disable
// them.
type Options struct {
	Trace      *telemetry.Trace
	Milestones *telemetry.MilestoneDetector
	Perf       *telemetry.PerfCollector
	// Progress is called after every population row.
	Progress func(row telemetry.PopulationRow)
}

// Simulation is the state of one run.
type Simulation struct {
	cfg    *config.Config
	host   Host
	grid   *sponge.Grid
	rng    *rng.Streams
	out    Output
	opts   Options
	seeder *Seeder

	queue     *event.Queue
	ledger    *Ledger
	collector *telemetry.Collector

	now       float64
	end       float64
	processed int
	ran       bool
}

// New creates a run over host and grid. Nothing happens until Run.
func New(cfg *config.Config, host Host, grid *sponge.Grid, streams *rng.Streams, out Output, opts Options) *Simulation {
	s := &Simulation{
		cfg:       cfg,
		host:      host,
		grid:      grid,
		rng:       streams,
		out:       out,
		opts:      opts,
		seeder:    NewSeeder(cfg),
		queue:     event.NewQueue(),
		collector: telemetry.NewCollector(),
		end:       cfg.MaxSimulatedTime,
	}
	s.ledger = NewLedger(cfg.NumClades, s.emitRow)
	return s
}

// Ledger exposes the population ledger.
func (s *Simulation) Ledger() *Ledger { return s.ledger }

// Queue exposes the pending events.
func (s *Simulation) Queue() *event.Queue { return s.queue }

// Now returns the simulation clock.
func (s *Simulation) Now() float64 { return s.now }

// Processed returns the number of dispatched events.
func (s *Simulation) Processed() int { return s.processed }

func (s *Simulation) emitRow(row telemetry.PopulationRow) error {
	if s.opts.Perf != nil {
		s.opts.Perf.StartPhase(telemetry.PhaseOutput)
	}
	if err := s.out.WritePopulation(row); err != nil {
		return err
	}
	if err := s.out.WriteStats(s.collector.Flush(row)); err != nil {
		return err
	}
	if s.opts.Milestones != nil {
		for _, m := range s.opts.Milestones.Check(row) {
			m.Log()
			s.opts.Trace.Logf("MILESTONE %s @ t=%v: %s", m.Type, m.Time, m.Description)
		}
	}
	if s.opts.Progress != nil {
		s.opts.Progress(row)
	}
	if s.opts.Perf != nil {
		s.opts.Perf.EndDay()
	}
	return nil
}

// Seed places the initial population and emits day 0. Run calls it when it
// has not been called yet.
func (s *Simulation) Seed() error {
	if s.ran {
		return fmt.Errorf("sim: already seeded")
	}
	s.ran = true
	if s.opts.Perf != nil {
		s.opts.Perf.StartDay()
	}
	if err := s.seeder.Seed(s.host, s.grid, s.rng, s.queue, s.ledger); err != nil {
		return err
	}
	s.opts.Trace.Logf("SEEDED %d symbionts, %d events pending", s.ledger.Total(), s.queue.Len())
	return s.ledger.Start()
}

// Run seeds the host if needed and processes events until the queue is
// empty or the clock reaches MAX_SIMULATED_TIME, then writes exit records
// for the remaining residents and the final population row. Any error
// leaves the outputs incomplete; callers abort them.
func (s *Simulation) Run(ctx context.Context) error {
	if !s.ran {
		if err := s.Seed(); err != nil {
			return err
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		next, ok := s.queue.Peek()
		if !ok || next.Time >= s.end {
			break
		}
		ev, _ := s.queue.Pop()
		if err := s.Step(ev); err != nil {
			return err
		}
	}

	s.now = s.end
	if err := s.host.FlushResidents(s.end); err != nil {
		return fmt.Errorf("flushing residents: %w", err)
	}
	if err := s.ledger.Close(s.end); err != nil {
		return fmt.Errorf("writing population: %w", err)
	}
	s.opts.Trace.Logf("END @ t=%v after %d events, %d residents", s.end, s.processed, s.ledger.Total())
	return nil
}

// Step advances the clock to ev and dispatches it.
func (s *Simulation) Step(ev event.Event) error {
	s.now = ev.Time
	if err := s.ledger.Advance(s.now); err != nil {
		return fmt.Errorf("writing population: %w", err)
	}
	if s.opts.Perf != nil {
		s.opts.Perf.StartPhase(ev.Kind.String())
	}
	s.opts.Trace.Logf("%s", ev)
	s.processed++

	var err error
	switch {
	case ev.Kind == event.Arrival:
		err = s.handleArrival()
	case ev.Kind == event.EndG0:
		s.host.EndG0(ev.Agent, s.now)
		s.schedule(ev.Agent)
	case ev.Kind == event.EndG1SG2M:
		err = s.handleDivision(ev.Agent)
	case ev.Kind.Terminal():
		err = s.handleTerminal(ev.Agent, ev.Kind)
	default:
		err = fmt.Errorf("unknown event kind %s", ev.Kind)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", ev, err)
	}
	return nil
}

func (s *Simulation) schedule(id event.AgentID) {
	s.queue.Push(s.host.Next(id).For(id))
}

func (s *Simulation) handleArrival() error {
	id, ok, err := s.host.Arrive(s.now, s.ledger.Total())
	if err != nil {
		return err
	}
	s.collector.RecordArrival(ok)
	if ok {
		s.schedule(id)
		clade := s.host.Clade(id)
		s.ledger.Add(clade)
		s.opts.Trace.Logf("  symbiont %d of clade %d colonized", id, clade)
	}

	s.queue.Push(event.Event{
		Time: s.now + s.rng.Exponential(s.cfg.AvgTimeBetweenArrivals, rng.Arrivals),
		Kind: event.Arrival,
	})
	return nil
}

func (s *Simulation) handleDivision(parent event.AgentID) error {
	c, err := s.host.Divide(parent, s.now)
	if err != nil {
		return err
	}
	s.collector.RecordDivision(c.Outcome)
	s.opts.Trace.Logf("  %s: parent %d, child %d", c.Outcome, parent, c.Child)

	switch {
	case c.Outcome == event.BothStay:
		s.schedule(parent)
		s.schedule(c.Child)
		s.ledger.Add(s.host.Clade(c.Child))
	case c.Outcome.ParentDeparts():
		if err := s.host.Exit(parent, s.now, c.Outcome.Reason()); err != nil {
			return err
		}
		s.schedule(c.Child)
	case c.Outcome.ChildDeparts():
		if err := s.host.Exit(c.Child, s.now, c.Outcome.Reason()); err != nil {
			return err
		}
		s.schedule(parent)
	default:
		return fmt.Errorf("unknown outcome %s", c.Outcome)
	}
	return nil
}

func (s *Simulation) handleTerminal(id event.AgentID, kind event.Kind) error {
	s.host.Terminate(id, s.now, kind)
	reason, err := event.TerminalReason(kind, s.host.PrevKind(id))
	if err != nil {
		return err
	}
	clade := s.host.Clade(id)
	if err := s.host.Exit(id, s.now, reason); err != nil {
		return err
	}
	s.collector.RecordTerminal(kind)
	s.opts.Trace.Logf("  symbiont %d exits: %s", id, reason)
	return s.ledger.Remove(clade)
}
