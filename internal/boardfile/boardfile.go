// Package boardfile loads a routing scenario from a JSON document.
//
// spec.md §6 assigns the real input grammar to an external parser out of
// scope for this repository ("Exact grammar is external to the core"). This
// package is a minimal stand-in sufficient to construct a runnable Scenario
// for the CLI and for tests: it carries nets, design-rule subsets (there is
// no separate design-rule-set level), design-rule, barrier, proximity, cost
// and pin-swap zones, the trace/via cost-multiplier tables, and the engine
// numeric knobs, JSON-encoded instead of whatever grammar a production
// front end would use.
package boardfile

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/danboyne/acorn/internal/apperror"
	"github.com/danboyne/acorn/internal/grid"
	"github.com/danboyne/acorn/internal/netlist"
)

// MaxFilenameLength bounds the input filename, per spec.md §6/§7's
// "oversized input filename" configuration-fatal condition.
const MaxFilenameLength = 255

// MinTerminalSeparation is the minimum board-plane distance, in grid cells,
// between any two different nets' terminals on the same layer — closer than
// this is the "terminals too close to another's" configuration-fatal
// condition from spec.md §7.
const MinTerminalSeparation = 2.0

// netDecl is one net as it appears in the JSON document.
type netDecl struct {
	Name                string  `json:"name"`
	Start               [3]int  `json:"start"`
	End                 [3]int  `json:"end"`
	DesignRuleSubset    int     `json:"design_rule_subset"`
	IsTerminalSwappable bool    `json:"terminal_swappable"`
	IsPseudoNet         bool    `json:"pseudo_net"`
	DiffPairPitch       float64 `json:"diff_pair_pitch"` // > 0 iff IsPseudoNet

	// IsDiffPairChild and ParentNet declare the strict pseudo-net/child tree
	// spec.md §3/§9 describes: a child net names its pseudo net by name, and
	// the pseudo net gains exactly two children, assigned in declaration
	// order (first becomes ChildA, second ChildB).
	IsDiffPairChild bool   `json:"diff_pair_child"`
	ParentNet       string `json:"parent_net"`
}

type layerRuleDecl struct {
	Layer           int     `json:"layer"`
	TraceWidth      float64 `json:"trace_width"`
	ViaDiameter     float64 `json:"via_diameter"`
	TraceToTraceGap float64 `json:"trace_to_trace_gap"`
	TraceToViaGap   float64 `json:"trace_to_via_gap"`
}

type designRuleSubsetDecl struct {
	ID     int             `json:"id"`
	Layers []layerRuleDecl `json:"layers"`
}

type boxDecl struct {
	Layer int `json:"layer"`
	MinX  int `json:"min_x"`
	MinY  int `json:"min_y"`
	MaxX  int `json:"max_x"`
	MaxY  int `json:"max_y"`
}

type costZoneDecl struct {
	boxDecl
	Kind            string `json:"kind"` // "trace" or "via"
	MultiplierIndex int    `json:"multiplier_index"`
}

type document struct {
	GridSizeX int `json:"grid_size_x"`
	GridSizeY int `json:"grid_size_y"`
	GridSizeZ int `json:"grid_size_z"`

	Nets              []netDecl              `json:"nets"`
	DesignRuleSubsets []designRuleSubsetDecl `json:"design_rule_subsets"`

	DesignRuleZones []struct {
		boxDecl
		SubsetID int `json:"subset_id"`
	} `json:"design_rule_zones"`
	BarrierZones   []boxDecl `json:"barrier_zones"`
	ProximityZones []boxDecl `json:"proximity_zones"`
	CostZones      []costZoneDecl `json:"cost_zones"`
	PinSwapZones   []struct {
		boxDecl
		ID int `json:"id"`
	} `json:"pin_swap_zones"`

	TraceCostMultipliers []float64 `json:"trace_cost_multipliers"`
	ViaCostMultipliers   []float64 `json:"via_cost_multipliers"`

	UserDRCFreeThreshold     int     `json:"user_drc_free_threshold"`
	MaxIterations            int     `json:"max_iterations"`
	PreEvaporationIterations int     `json:"pre_evaporation_iterations"`
	DefaultEvapRate          float64 `json:"default_evap_rate"`
	DefaultCellCost          float64 `json:"default_cell_cost"`
}

// Scenario is everything the controller needs to run one routing job: a
// painted grid, its netlist, and the engine knobs the board file carries
// alongside (or instead of) config.EngineConfig.
type Scenario struct {
	Grid    *grid.Grid
	Netlist *netlist.Netlist
	Rules   []netlist.DesignRuleSubset

	UserDRCFreeThreshold     int
	MaxIterations            int
	PreEvaporationIterations int
	DefaultEvapRate          float64
	DefaultCellCost          float64

	// Pitches carries each pseudo net's declared diff-pair pitch, keyed by
	// the pseudo net's ID, for internal/diffpair.Expander to read at
	// expansion time.
	Pitches map[netlist.NetID]float64

	// DesignRuleConflict is set when two adjacent layers in some subset
	// declare incompatible via diameters. Per spec.md §6's concrete scenario
	// 6, this is not an immediate load failure: the caller forces
	// MaxIterations to 1 (already done here) and runs one diagnostic
	// iteration before exiting, rather than aborting before any report is
	// produced.
	DesignRuleConflict bool
}

// Load reads and validates a board-scenario JSON file at path.
func Load(path string) (*Scenario, error) {
	if len(path) > MaxFilenameLength {
		return nil, apperror.ConfigFatal(apperror.CodeFilenameTooLong,
			fmt.Sprintf("input filename is %d characters, exceeds the %d-character limit", len(path), MaxFilenameLength))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.KindConfigFatal, apperror.CodeArgParse, "reading board file")
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, apperror.Wrap(err, apperror.KindConfigFatal, apperror.CodeArgParse, "parsing board file")
	}

	return build(&doc)
}

func build(doc *document) (*Scenario, error) {
	rules := make([]netlist.DesignRuleSubset, len(doc.DesignRuleSubsets))
	for i, s := range doc.DesignRuleSubsets {
		layers := make([]netlist.LayerRule, len(s.Layers))
		for j, l := range s.Layers {
			layers[j] = netlist.LayerRule{
				Layer:           l.Layer,
				TraceWidth:      l.TraceWidth,
				ViaDiameter:     l.ViaDiameter,
				TraceToTraceGap: l.TraceToTraceGap,
				TraceToViaGap:   l.TraceToViaGap,
			}
		}
		rules[i] = netlist.DesignRuleSubset{ID: s.ID, Layers: layers}
	}

	conflict := hasDesignRuleConflict(rules)

	nl, err := buildNetlist(doc.Nets)
	if err != nil {
		return nil, err
	}
	if err := checkTerminalPlacement(nl); err != nil {
		return nil, err
	}

	g := grid.New(doc.GridSizeX, doc.GridSizeY, doc.GridSizeZ)
	if len(doc.TraceCostMultipliers) > 0 {
		g.TraceCostMultipliers = doc.TraceCostMultipliers
	}
	if len(doc.ViaCostMultipliers) > 0 {
		g.ViaCostMultipliers = doc.ViaCostMultipliers
	}
	g.PaintFromZones(zonesFrom(doc))

	maxIterations := doc.MaxIterations
	if conflict {
		maxIterations = 1
	}

	pitches := make(map[netlist.NetID]float64)
	for i, d := range doc.Nets {
		if d.IsPseudoNet {
			pitches[netlist.NetID(i)] = d.DiffPairPitch
		}
	}

	return &Scenario{
		Grid:                     g,
		Netlist:                  nl,
		Rules:                    rules,
		UserDRCFreeThreshold:     doc.UserDRCFreeThreshold,
		MaxIterations:            maxIterations,
		PreEvaporationIterations: doc.PreEvaporationIterations,
		DefaultEvapRate:          doc.DefaultEvapRate,
		DefaultCellCost:          doc.DefaultCellCost,
		Pitches:                  pitches,
		DesignRuleConflict:       conflict,
	}, nil
}

// buildNetlist creates one netlist.Net per declaration, then links diff-pair
// children to their pseudo net. Two passes are required because a child may
// be declared before or after the pseudo net it names.
func buildNetlist(decls []netDecl) (*netlist.Netlist, error) {
	nl := &netlist.Netlist{Nets: make([]netlist.Net, len(decls))}
	byName := make(map[string]netlist.NetID, len(decls))

	for i, d := range decls {
		if d.IsPseudoNet && d.DiffPairPitch <= 0 {
			return nil, apperror.ConfigFatal(apperror.CodeDiffPairMisaligned,
				fmt.Sprintf("pseudo net %q declares a non-positive diff-pair pitch", d.Name))
		}
		nl.Nets[i] = netlist.Net{
			ID:                  netlist.NetID(i),
			Name:                d.Name,
			Start:               grid.Point{X: d.Start[0], Y: d.Start[1], Z: d.Start[2]},
			End:                 grid.Point{X: d.End[0], Y: d.End[1], Z: d.End[2]},
			DesignRuleSubset:    d.DesignRuleSubset,
			IsPseudoNet:         d.IsPseudoNet,
			IsDiffPairChild:     d.IsDiffPairChild,
			IsTerminalSwappable: d.IsTerminalSwappable,
			Parent:              netlist.NoNet,
			ChildA:              netlist.NoNet,
			ChildB:              netlist.NoNet,
		}
		byName[d.Name] = netlist.NetID(i)
	}

	for i, d := range decls {
		if !d.IsDiffPairChild {
			continue
		}
		parentID, ok := byName[d.ParentNet]
		if !ok {
			return nil, apperror.ConfigFatal(apperror.CodeDiffPairMisaligned,
				fmt.Sprintf("diff-pair child %q names unknown parent net %q", d.Name, d.ParentNet))
		}
		parent := &nl.Nets[parentID]
		if !parent.IsPseudoNet {
			return nil, apperror.ConfigFatal(apperror.CodeDiffPairMisaligned,
				fmt.Sprintf("diff-pair child %q's parent %q is not a pseudo net", d.Name, d.ParentNet))
		}
		child := netlist.NetID(i)
		nl.Nets[i].Parent = parentID
		switch netlist.NoNet {
		case parent.ChildA:
			parent.ChildA = child
		case parent.ChildB:
			parent.ChildB = child
		default:
			return nil, apperror.ConfigFatal(apperror.CodeDiffPairMisaligned,
				fmt.Sprintf("pseudo net %q already has two diff-pair children, cannot add %q", d.ParentNet, d.Name))
		}
	}

	return nl, nil
}

func hasDesignRuleConflict(rules []netlist.DesignRuleSubset) bool {
	for _, subset := range rules {
		for i := 0; i < len(subset.Layers); i++ {
			for j := i + 1; j < len(subset.Layers); j++ {
				a, b := subset.Layers[i].Layer, subset.Layers[j].Layer
				if abs(a-b) != 1 {
					continue
				}
				if _, _, conflict := subset.Conflict(a, b); conflict {
					return true
				}
			}
		}
	}
	return false
}

// checkTerminalPlacement enforces spec.md §7's two terminal-placement
// violations: diff-pair misalignment (checked earlier, at decode time, since
// it only needs the pseudo net's own declared pitch) and any two distinct
// nets' terminals sitting closer than MinTerminalSeparation on the same
// layer.
func checkTerminalPlacement(nl *netlist.Netlist) error {
	terminals := make([]grid.Point, 0, len(nl.Nets)*2)
	for _, n := range nl.Nets {
		terminals = append(terminals, n.Start, n.End)
	}
	for i := 0; i < len(terminals); i++ {
		for j := i + 1; j < len(terminals); j++ {
			a, b := terminals[i], terminals[j]
			if a.Z != b.Z || i/2 == j/2 {
				continue
			}
			if planarDistance(a, b) < MinTerminalSeparation {
				return apperror.ConfigFatal(apperror.CodeTerminalsTooClose,
					fmt.Sprintf("terminals at (%d,%d,%d) and (%d,%d,%d) are closer than the minimum separation", a.X, a.Y, a.Z, b.X, b.Y, b.Z))
			}
		}
	}
	return nil
}

func planarDistance(a, b grid.Point) float64 {
	dx, dy := float64(a.X-b.X), float64(a.Y-b.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func zonesFrom(doc *document) grid.Zones {
	z := grid.Zones{}
	for _, d := range doc.DesignRuleZones {
		z.DesignRule = append(z.DesignRule, grid.DesignRuleZone{Box: toBox(d.boxDecl), SubsetID: d.SubsetID})
	}
	for _, d := range doc.BarrierZones {
		z.Barrier = append(z.Barrier, grid.BarrierZone{Box: toBox(d)})
	}
	for _, d := range doc.ProximityZones {
		z.Proximity = append(z.Proximity, grid.ProximityZone{Box: toBox(d)})
	}
	for _, d := range doc.CostZones {
		kind := grid.CostZoneTrace
		if d.Kind == "via" {
			kind = grid.CostZoneVia
		}
		z.Cost = append(z.Cost, grid.CostZone{Box: toBox(d.boxDecl), Kind: kind, MultiplierIndex: d.MultiplierIndex})
	}
	for _, d := range doc.PinSwapZones {
		z.PinSwap = append(z.PinSwap, grid.PinSwapZone{Box: toBox(d.boxDecl), ID: d.ID})
	}
	return z
}

func toBox(d boxDecl) grid.Box {
	return grid.Box{Layer: d.Layer, MinX: d.MinX, MinY: d.MinY, MaxX: d.MaxX, MaxY: d.MaxY}
}
