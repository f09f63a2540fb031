package grid

// Box is an axis-aligned rectangle on a single layer. The external parser
// and zone-painting collaborators described in spec.md §1 may carry
// arbitrary polygons; this repository's loader (internal/boardfile) only
// ever produces axis-aligned boxes, which is sufficient for the reference
// pipeline and tests without reimplementing a polygon rasterizer that spec.md
// explicitly assigns to an external collaborator.
type Box struct {
	Layer          int
	MinX, MinY     int
	MaxX, MaxY     int
}

func (b Box) contains(x, y int) bool {
	return x >= b.MinX && x <= b.MaxX && y >= b.MinY && y <= b.MaxY
}

// DesignRuleZone paints a design-rule subset id over a box on one layer.
type DesignRuleZone struct {
	Box
	SubsetID int
}

// BarrierZone marks a box on one layer unwalkable.
type BarrierZone struct {
	Box
}

// ProximityZone marks a box on one layer as a keep-out proximity margin
// (near a barrier or the board edge).
type ProximityZone struct {
	Box
}

// CostZoneKind distinguishes trace-cost from via-cost zones.
type CostZoneKind int

const (
	CostZoneTrace CostZoneKind = iota
	CostZoneVia
)

// CostZone paints a cost-multiplier index over a box on one layer.
type CostZone struct {
	Box
	Kind            CostZoneKind
	MultiplierIndex int
}

// PinSwapZone marks a box on one layer as a pin-swap zone with the given id.
// Terminals inside a pin-swap zone are ineligible for the terminal-swap
// intervention (spec.md §4.7(D)) and relocatable to any equivalent cell
// within the zone (out of scope here — relocation itself is an external
// collaborator's job per spec.md §1).
type PinSwapZone struct {
	Box
	ID int
}

// Zones is the flat set of zone declarations parsed from the input file,
// applied to a Grid once at startup by PaintFromZones.
type Zones struct {
	DesignRule []DesignRuleZone
	Barrier    []BarrierZone
	Proximity  []ProximityZone
	Cost       []CostZone
	PinSwap    []PinSwapZone
}

// PaintFromZones applies every zone declaration to the grid, in the fixed
// order design-rule, barrier, proximity, cost, pin-swap — later zones may
// overwrite earlier ones on overlapping cells, matching the imperative
// layering spec.md §4.1 describes. This runs once at startup, never during
// the iteration loop.
func (g *Grid) PaintFromZones(z Zones) {
	for _, dz := range z.DesignRule {
		g.forEachCellInBox(dz.Box, func(c *Cell) { c.DesignRuleSubset = dz.SubsetID })
	}
	for _, bz := range z.Barrier {
		g.forEachCellInBox(bz.Box, func(c *Cell) { c.Barrier = true })
	}
	for _, pz := range z.Proximity {
		g.forEachCellInBox(pz.Box, func(c *Cell) { c.Proximity = true })
	}
	for _, cz := range z.Cost {
		switch cz.Kind {
		case CostZoneTrace:
			g.forEachCellInBox(cz.Box, func(c *Cell) { c.TraceCostIdx = cz.MultiplierIndex })
		case CostZoneVia:
			g.forEachCellInBox(cz.Box, func(c *Cell) { c.ViaCostIdx = cz.MultiplierIndex })
		}
	}
	for _, sz := range z.PinSwap {
		g.forEachCellInBox(sz.Box, func(c *Cell) { c.PinSwapZone = sz.ID })
	}
}

func (g *Grid) forEachCellInBox(b Box, fn func(*Cell)) {
	if b.Layer < 0 || b.Layer >= g.SizeZ {
		return
	}
	minX, maxX := clampRange(b.MinX, b.MaxX, g.SizeX)
	minY, maxY := clampRange(b.MinY, b.MaxY, g.SizeY)
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			fn(g.At(Point{X: x, Y: y, Z: b.Layer}))
		}
	}
}

func clampRange(min, max, size int) (int, int) {
	if min < 0 {
		min = 0
	}
	if max > size-1 {
		max = size - 1
	}
	return min, max
}

// InPinSwapZone reports whether p sits inside any pin-swap zone.
func (g *Grid) InPinSwapZone(p Point) bool {
	if !g.InBounds(p) {
		return false
	}
	return g.At(p).PinSwapZone != 0
}
