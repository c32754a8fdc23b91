package world

import "math"

// AOIGrid implements a cell-based Area of Interest index over the horizontal
// plane. Radius queries visit only the cells overlapping the query square;
// callers do fine-grained distance filtering.
// Guarded by the owning State's lock.

const cellSize = 16.0

type cellKey struct {
	world string
	cx    int32
	cz    int32
}

func toCellCoord(v float64) int32 {
	return int32(math.Floor(v / cellSize))
}

// AOIGrid tracks which entities are in which cells.
type AOIGrid struct {
	cells map[cellKey]map[EntityID]struct{} // cellKey → set of entity IDs
}

func NewAOIGrid() *AOIGrid {
	return &AOIGrid{
		cells: make(map[cellKey]map[EntityID]struct{}),
	}
}

func (g *AOIGrid) key(loc Location) cellKey {
	return cellKey{world: loc.World, cx: toCellCoord(loc.X), cz: toCellCoord(loc.Z)}
}

// Add places an entity into the grid.
func (g *AOIGrid) Add(id EntityID, loc Location) {
	k := g.key(loc)
	cell := g.cells[k]
	if cell == nil {
		cell = make(map[EntityID]struct{})
		g.cells[k] = cell
	}
	cell[id] = struct{}{}
}

// Remove takes an entity out of the grid.
func (g *AOIGrid) Remove(id EntityID, loc Location) {
	k := g.key(loc)
	cell := g.cells[k]
	if cell != nil {
		delete(cell, id)
		if len(cell) == 0 {
			delete(g.cells, k)
		}
	}
}

// Move updates an entity's cell when its position changes.
func (g *AOIGrid) Move(id EntityID, from, to Location) {
	if g.key(from) == g.key(to) {
		return
	}
	g.Remove(id, from)
	g.Add(id, to)
}

// Within returns all entity IDs in cells overlapping the square of half-size
// radius around origin.
func (g *AOIGrid) Within(origin Location, radius float64) []EntityID {
	if radius < 0 {
		return nil
	}
	minX, maxX := toCellCoord(origin.X-radius), toCellCoord(origin.X+radius)
	minZ, maxZ := toCellCoord(origin.Z-radius), toCellCoord(origin.Z+radius)
	var result []EntityID
	for cx := minX; cx <= maxX; cx++ {
		for cz := minZ; cz <= maxZ; cz++ {
			for id := range g.cells[cellKey{world: origin.World, cx: cx, cz: cz}] {
				result = append(result, id)
			}
		}
	}
	return result
}
