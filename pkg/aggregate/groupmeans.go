package aggregate

// groupDim identifies a per-group match score breakdown.
type groupDim int

const (
	groupGrade groupDim = iota
	groupBoard
	groupLocation
	groupDimCount
)

// groupMeans tracks per-group match score averages across the three
// breakdown dimensions, in either corrected or legacy mode.
type groupMeans struct {
	legacy bool

	// corrected mode: (sum, count) per key
	accs [groupDimCount]map[string]*meanAcc

	// legacy mode: stored pairwise value per key
	pairwise [groupDimCount]map[string]float64
}

func newGroupMeans(legacy bool) *groupMeans {
	g := &groupMeans{legacy: legacy}
	for d := range groupDimCount {
		g.accs[d] = map[string]*meanAcc{}
		g.pairwise[d] = map[string]float64{}
	}
	return g
}

// observe folds one match score into a group's average. In corrected mode
// the group keeps a (sum, count) pair. In legacy mode it reproduces the
// historical merge exactly: value = (stored+new)/2 when a value exists,
// else the new value.
func (g *groupMeans) observe(dim groupDim, key string, score float64) {
	if key == "" {
		return
	}
	if g.legacy {
		if stored, ok := g.pairwise[dim][key]; ok {
			g.pairwise[dim][key] = (stored + score) / 2
		} else {
			g.pairwise[dim][key] = score
		}
		return
	}
	acc, ok := g.accs[dim][key]
	if !ok {
		acc = &meanAcc{}
		g.accs[dim][key] = acc
	}
	acc.add(score)
}

// result materializes a dimension's averages.
func (g *groupMeans) result(dim groupDim) map[string]float64 {
	out := map[string]float64{}
	if g.legacy {
		for k, v := range g.pairwise[dim] {
			out[k] = v
		}
		return out
	}
	for k, acc := range g.accs[dim] {
		out[k] = acc.mean()
	}
	return out
}
