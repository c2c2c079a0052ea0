package model

// Aggregate bundles the objective with its key results. This is the unit
// the cache and the emergency snapshot persist.
type Aggregate struct {
	Objective  *Objective  `json:"objective"`
	KeyResults []KeyResult `json:"key_results"`
}

// Clone deep-copies the aggregate.
func (a *Aggregate) Clone() *Aggregate {
	if a == nil {
		return nil
	}
	return &Aggregate{
		Objective:  a.Objective.Clone(),
		KeyResults: CloneKeyResults(a.KeyResults),
	}
}
