package rank

// Population is the fixed, ordered set of users every ranking must cover.
type Population struct {
	order   []string
	members map[string]struct{}
}

// NewPopulation deduplicates ids, keeping first occurrences.
func NewPopulation(ids []string) (*Population, error) {
	p := &Population{members: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := p.members[id]; ok {
			continue
		}
		p.members[id] = struct{}{}
		p.order = append(p.order, id)
	}
	if len(p.order) == 0 {
		return nil, ErrEmptyPopulation
	}
	return p, nil
}

// PopulationFromScores builds a population from the users of a baseline table.
func PopulationFromScores(scores []Score) (*Population, error) {
	ids := make([]string, len(scores))
	for i, s := range scores {
		ids[i] = s.UserID
	}
	return NewPopulation(ids)
}

func (p *Population) Contains(id string) bool {
	_, ok := p.members[id]
	return ok
}

func (p *Population) Users() []string {
	return append([]string(nil), p.order...)
}

func (p *Population) Len() int {
	return len(p.order)
}
