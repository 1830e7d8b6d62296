// Package domain models the spatial data the flood-risk service operates
// on: georeferenced rasters, road graphs, and escape routes.
//
// # Rasters
//
// All factor rasters, the water mask, and the Flood Susceptibility Index
// (FSI) share one grid: a WGS-84 bounding box divided into cells of a
// target ground size. Row 0 is the northern edge; cells are stored
// row-major. Normalized factor rasters hold values in [0, 1]; the FSI
// raster is clamped to [0, 1]; cells with no valid sample hold the
// NoData sentinel and are excluded from statistics. Grid alignment
// across rasters is a caller-enforced precondition; combining stages
// check it and fail with ErrGridMismatch rather than sampling garbage.
//
// # Road graphs
//
// Graphs arrive from an external road-network collaborator with nodes
// (id, lat, lon) and directed edges (from, to, length in metres). The
// overlay stage attaches a flood_risk to every edge and an FSI/is_safe
// label to every node by sampling the FSI raster, then derives a
// penalized copy for routing: impassable edges removed, risky edges'
// lengths inflated. The risk-sampled original stays untouched so
// statistics see unpenalized lengths.
package domain
