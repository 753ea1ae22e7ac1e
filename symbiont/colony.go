package symbiont

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/symbiosis/config"
	"github.com/pthm-cable/symbiosis/event"
	"github.com/pthm-cable/symbiosis/rng"
	"github.com/pthm-cable/symbiosis/sponge"
	"github.com/pthm-cable/symbiosis/telemetry"
)

// ErrUnknownAgent is returned for IDs that are not resident.
var ErrUnknownAgent = errors.New("symbiont: unknown agent")

// ExitRecorder receives one record per departing symbiont.
type ExitRecorder interface {
	WriteExit(rec telemetry.ExitRecord) error
}

// Colony holds every resident symbiont of one run.
type Colony struct {
	cfg      *config.Config
	grid     *sponge.Grid
	rng      *rng.Streams
	recorder ExitRecorder

	world  *ecs.World
	mapper *ecs.Map4[Identity, Residence, Cycle, Lineage]
	filter *ecs.Filter4[Identity, Residence, Cycle, Lineage]

	entities map[event.AgentID]ecs.Entity
	lastID   event.AgentID
	weights  []float64 // clade proportions for arrivals
}

// NewColony creates an empty colony on grid. recorder may be nil.
func NewColony(cfg *config.Config, grid *sponge.Grid, streams *rng.Streams, recorder ExitRecorder) *Colony {
	world := ecs.NewWorld()
	return &Colony{
		cfg:      cfg,
		grid:     grid,
		rng:      streams,
		recorder: recorder,
		world:    world,
		mapper:   ecs.NewMap4[Identity, Residence, Cycle, Lineage](world),
		filter:   ecs.NewFilter4[Identity, Residence, Cycle, Lineage](world),
		entities: make(map[event.AgentID]ecs.Entity),
		weights:  cladeWeights(cfg.Derived.CumulativeProportions),
	}
}

func cladeWeights(cumulative []float64) []float64 {
	w := make([]float64, len(cumulative))
	prev := 0.0
	for i, c := range cumulative {
		w[i] = c - prev
		prev = c
	}
	return w
}

// Len returns the number of resident symbionts.
func (c *Colony) Len() int {
	return len(c.entities)
}

func (c *Colony) pick(st rng.Stream) sponge.Pick {
	return func(n int) int { return c.rng.IntN(n, st) }
}

func (c *Colony) lookup(id event.AgentID) (ecs.Entity, error) {
	e, ok := c.entities[id]
	if !ok || !c.world.Alive(e) {
		return ecs.Entity{}, fmt.Errorf("symbiont %d: %w", id, ErrUnknownAgent)
	}
	return e, nil
}

func (c *Colony) mustLookup(id event.AgentID) ecs.Entity {
	e, err := c.lookup(id)
	if err != nil {
		panic(err)
	}
	return e
}

func (c *Colony) spawn(clade int, cell sponge.Cell, housed bool, now float64, lin Lineage) (event.AgentID, ecs.Entity) {
	c.lastID++
	id := c.lastID
	e := c.mapper.NewEntity(
		&Identity{ID: id, Clade: clade},
		&Residence{Cell: cell, Arrival: now, Housed: housed},
		&Cycle{Prev: event.Arrival, Denouement: now + c.rng.Exponential(c.cfg.DenouementMean, rng.Denouement)},
		&lin,
	)
	c.entities[id] = e
	return id, e
}

// enterPhase starts the phase following prev at time now and draws the
// symbiont's next event.
func (c *Colony) enterPhase(cy *Cycle, clade int, prev event.Kind, now float64) {
	cy.Prev = prev
	cy.PhaseStart = now

	end, kind := now, event.EndG0
	if cy.InG0() {
		end += c.rng.Gamma(c.cfg.PhaseShape, c.cfg.G0Mean[clade], rng.G0)
	} else {
		end += c.rng.Gamma(c.cfg.PhaseShape, c.cfg.G1SG2MMean[clade], rng.G1SG2M)
		kind = event.EndG1SG2M
	}

	response := math.Inf(1)
	if c.cfg.HostResponseMean > 0 {
		response = now + c.rng.Exponential(c.cfg.HostResponseMean, rng.HostResponse)
	}

	switch {
	case cy.Denouement <= end && cy.Denouement <= response:
		cy.Next = event.Next{Time: max(cy.Denouement, now), Kind: event.Denouement}
	case response < end:
		kind := event.Escape
		if c.rng.Bernoulli(c.cfg.DigestionProbability, rng.HostResponse) {
			kind = event.Digestion
		}
		cy.Next = event.Next{Time: response, Kind: kind}
	default:
		cy.Next = event.Next{Time: end, Kind: kind}
	}
}

// Settle places a new symbiont of clade in cell at time now. It is used for
// seeded symbionts and accepted arrivals.
func (c *Colony) Settle(clade int, cell sponge.Cell, now float64) (event.AgentID, error) {
	if clade < 0 || clade >= c.cfg.NumClades {
		return event.NoAgent, fmt.Errorf("settle: clade %d out of range", clade)
	}
	if !c.grid.IsOpen(cell) {
		return event.NoAgent, fmt.Errorf("settle %s: %w", cell, sponge.ErrOccupied)
	}
	id, e := c.spawn(clade, cell, true, now, Lineage{})
	if err := c.grid.Occupy(cell, id); err != nil {
		c.remove(id, e)
		return event.NoAgent, err
	}
	_, _, cy, _ := c.mapper.Get(e)
	c.enterPhase(cy, clade, event.Arrival, now)
	return id, nil
}

// Arrive lets one outside candidate try to colonize. The candidate's clade
// follows the clade proportions; it lands on a uniformly chosen cell and
// stays if the cell is open and the affinity check passes.
func (c *Colony) Arrive(now float64, total int) (event.AgentID, bool, error) {
	if total >= c.grid.Capacity() {
		return event.NoAgent, false, nil
	}
	clade := c.rng.Choose(c.weights, rng.Clade)
	cell := c.grid.RandomCell(c.pick(rng.Placement))
	if !c.grid.IsOpen(cell) {
		return event.NoAgent, false, nil
	}
	if !c.rng.Bernoulli(c.cfg.CladeAffinity[clade], rng.Affinity) {
		return event.NoAgent, false, nil
	}
	id, err := c.Settle(clade, cell, now)
	if err != nil {
		return event.NoAgent, false, err
	}
	return id, true, nil
}

// Next returns the symbiont's next scheduled event.
func (c *Colony) Next(id event.AgentID) event.Next {
	_, _, cy, _ := c.mapper.Get(c.mustLookup(id))
	return cy.Next
}

// EndG0 moves the symbiont into G1/S/G2/M.
func (c *Colony) EndG0(id event.AgentID, now float64) {
	ident, _, cy, _ := c.mapper.Get(c.mustLookup(id))
	c.enterPhase(cy, ident.Clade, event.EndG0, now)
}

// Divide resolves a division. One side moves (the parent with
// PARENT_MOVES_PROBABILITY, otherwise the child) towards a random neighbor
// of the contested cell. Outside the grid it infects outside, onto an
// occupied cell it is evicted, and without affinity it leaves; otherwise
// both stay. A departing parent leaves its cell to the child. The departing
// side is still in the colony and must be passed to Exit.
func (c *Colony) Divide(id event.AgentID, now float64) (event.Contention, error) {
	pe, err := c.lookup(id)
	if err != nil {
		return event.Contention{}, err
	}
	pIdent, pRes, _, pLin := c.mapper.Get(pe)
	clade, home := pIdent.Clade, pRes.Cell
	pLin.Divisions++

	parentMoves := c.rng.Bernoulli(c.cfg.ParentMovesProbability, rng.Contention)
	target := c.grid.Neighbor(home, c.cfg.NeighborRadius, c.pick(rng.Contention))

	var outcome event.Outcome
	switch {
	case !c.grid.InBounds(target):
		outcome = side(parentMoves, event.ParentInfectsOutside, event.ChildInfectsOutside)
	case !c.grid.IsOpen(target):
		outcome = side(parentMoves, event.ParentEvicted, event.ChildEvicted)
	case !c.rng.Bernoulli(c.cfg.CladeAffinity[clade], rng.Affinity):
		outcome = side(parentMoves, event.ParentNoAffinity, event.ChildNoAffinity)
	default:
		outcome = event.BothStay
	}

	childCell := home
	if outcome == event.BothStay && !parentMoves {
		childCell = target
	}
	child, ce := c.spawn(clade, childCell, false, now, Lineage{
		Parent:     id,
		Generation: pLin.Generation + 1,
	})
	// spawn may have moved the parent's components.
	_, pRes, pCycle, _ := c.mapper.Get(pe)
	_, cRes, cCycle, _ := c.mapper.Get(ce)

	switch {
	case outcome == event.BothStay && parentMoves:
		if err := c.grid.Replace(home, id, child); err != nil {
			return event.Contention{}, err
		}
		if err := c.grid.Occupy(target, id); err != nil {
			return event.Contention{}, err
		}
		pRes.Cell = target
		cRes.Housed = true
	case outcome == event.BothStay:
		if err := c.grid.Occupy(target, child); err != nil {
			return event.Contention{}, err
		}
		cRes.Housed = true
	case outcome.ParentDeparts():
		if err := c.grid.Replace(home, id, child); err != nil {
			return event.Contention{}, err
		}
		pRes.Housed = false
		cRes.Housed = true
	}

	if outcome != event.BothStay {
		cRes.Cell = home
	}
	if !outcome.ParentDeparts() {
		c.enterPhase(pCycle, clade, event.EndG1SG2M, now)
	}
	if !outcome.ChildDeparts() {
		c.enterPhase(cCycle, clade, event.EndG1SG2M, now)
	}
	return event.Contention{Outcome: outcome, Child: child}, nil
}

func side(parent bool, ifParent, ifChild event.Outcome) event.Outcome {
	if parent {
		return ifParent
	}
	return ifChild
}

// Terminate applies a digestion, escape or denouement. The symbiont keeps
// its previous kind so the exit can be classified; it stays in the colony
// until Exit.
func (c *Colony) Terminate(id event.AgentID, now float64, kind event.Kind) {
	_, _, cy, _ := c.mapper.Get(c.mustLookup(id))
	cy.Next = event.Next{Time: now, Kind: kind}
}

// PrevKind returns the kind of the event that last acted on the symbiont.
func (c *Colony) PrevKind(id event.AgentID) event.Kind {
	_, _, cy, _ := c.mapper.Get(c.mustLookup(id))
	return cy.Prev
}

// Clade returns the symbiont's clade.
func (c *Colony) Clade(id event.AgentID) int {
	ident, _, _, _ := c.mapper.Get(c.mustLookup(id))
	return ident.Clade
}

// Cell returns the symbiont's cell and whether it holds one.
func (c *Colony) Cell(id event.AgentID) (sponge.Cell, bool) {
	e, err := c.lookup(id)
	if err != nil {
		return sponge.Cell{}, false
	}
	_, res, _, _ := c.mapper.Get(e)
	return res.Cell, res.Housed
}

// Exit writes the symbiont's exit record, frees its cell and removes it.
func (c *Colony) Exit(id event.AgentID, now float64, reason event.ExitReason) error {
	e, err := c.lookup(id)
	if err != nil {
		return err
	}
	rec := c.record(e, now, reason)
	c.remove(id, e)
	if c.recorder == nil {
		return nil
	}
	return c.recorder.WriteExit(rec)
}

func (c *Colony) record(e ecs.Entity, now float64, reason event.ExitReason) telemetry.ExitRecord {
	ident, res, _, lin := c.mapper.Get(e)
	return telemetry.ExitRecord{
		ID:            uint64(ident.ID),
		ParentID:      uint64(lin.Parent),
		Generation:    lin.Generation,
		Clade:         ident.Clade,
		Row:           res.Cell.Row,
		Col:           res.Cell.Col,
		ArrivalTime:   res.Arrival,
		ExitTime:      now,
		ResidenceTime: now - res.Arrival,
		Divisions:     lin.Divisions,
		Reason:        reason.String(),
		ReasonCode:    reason,
	}
}

func (c *Colony) remove(id event.AgentID, e ecs.Entity) {
	_, res, _, _ := c.mapper.Get(e)
	if res.Housed {
		c.grid.Vacate(res.Cell, id)
	}
	delete(c.entities, id)
	c.world.RemoveEntity(e)
}

// FlushResidents writes an IN_RESIDENCE record for every remaining
// symbiont, in ID order, and empties the colony.
func (c *Colony) FlushResidents(now float64) error {
	// First pass: collect residents (must complete before modifying)
	type resident struct {
		id     event.AgentID
		entity ecs.Entity
	}
	var residents []resident
	query := c.filter.Query()
	for query.Next() {
		ident, _, _, _ := query.Get()
		residents = append(residents, resident{id: ident.ID, entity: query.Entity()})
	}
	slices.SortFunc(residents, func(a, b resident) int { return cmp.Compare(a.id, b.id) })

	// Second pass: record and remove
	var firstErr error
	for _, r := range residents {
		rec := c.record(r.entity, now, event.InResidence)
		c.remove(r.id, r.entity)
		if c.recorder != nil {
			if err := c.recorder.WriteExit(rec); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
