package pool

// Stats is a point-in-time view of a pool's occupancy and lifetime counters.
type Stats struct {
	Name     string `json:"name"`
	State    string `json:"state"`
	Storage  string `json:"storage"`
	Recycle  string `json:"recycle"`
	Capacity int    `json:"capacity"`

	// Available and InUse partition the live entities.
	Available int `json:"available"`
	InUse     int `json:"in_use"`

	Created   int64 `json:"created"`
	Destroyed int64 `json:"destroyed"`
	Retrieved int64 `json:"retrieved"`
	Returned  int64 `json:"returned"`
	// Recycled counts retrievals satisfied by reclaiming an in-use entity.
	Recycled int64 `json:"recycled"`
	// Exhausted counts retrievals that failed with pool_exhausted.
	Exhausted int64 `json:"exhausted"`
}

// Live returns the number of entities created and not yet destroyed.
func (s Stats) Live() int64 {
	return s.Created - s.Destroyed
}

// Stats returns the pool's current counters.
func (p *Pool[T]) Stats() Stats {
	return Stats{
		Name:      p.name,
		State:     p.state.String(),
		Storage:   p.kind.String(),
		Recycle:   p.recycle.String(),
		Capacity:  p.capacity,
		Available: p.storage.Count(),
		InUse:     p.inUse.Len(),
		Created:   p.stats.created,
		Destroyed: p.stats.destroyed,
		Retrieved: p.stats.retrieved,
		Returned:  p.stats.returned,
		Recycled:  p.stats.recycled,
		Exhausted: p.stats.exhausted,
	}
}
