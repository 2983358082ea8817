package release

import (
	"slices"

	"github.com/wippyai/move-binary-format/errors"
	"github.com/wippyai/move-binary-format/format"
)

// DependencyOrder sorts mods so every module follows the modules it depends
// on. Dependencies outside mods are ignored. Among modules whose
// dependencies are satisfied the one with the smallest id comes first, so the
// order is independent of the input order.
func DependencyOrder(mods []*Module) ([]*Module, error) {
	byID := make(map[format.ModuleID]int, len(mods))
	for i, m := range mods {
		id := m.ID()
		if j, dup := byID[id]; dup {
			return nil, errors.New(errors.PhaseLoad, errors.KindDuplicate).
				Path(mods[j].File, m.File).
				Detail("module %s defined twice", id).
				Value(id.String()).
				Build()
		}
		byID[id] = i
	}

	// deps[i] lists the in-set modules i depends on; users is the reverse.
	deps := make([][]int, len(mods))
	users := make([][]int, len(mods))
	pending := make([]int, len(mods))
	for i, m := range mods {
		for _, dep := range m.Module.ImmediateDependencies() {
			j, ok := byID[dep]
			if !ok || j == i || slices.Contains(deps[i], j) {
				continue
			}
			deps[i] = append(deps[i], j)
			users[j] = append(users[j], i)
			pending[i]++
		}
	}

	less := func(a, b int) int { return compareIDs(mods[a].ID(), mods[b].ID()) }
	var ready []int
	for i := range mods {
		if pending[i] == 0 {
			ready = append(ready, i)
		}
	}

	out := make([]*Module, 0, len(mods))
	for len(ready) > 0 {
		slices.SortFunc(ready, less)
		next := ready[0]
		ready = ready[1:]
		out = append(out, mods[next])
		for _, u := range users[next] {
			pending[u]--
			if pending[u] == 0 {
				ready = append(ready, u)
			}
		}
	}

	if len(out) < len(mods) {
		return nil, errors.NewCyclicDependency(cycle(mods, deps, pending))
	}
	return out, nil
}

// cycle walks unsatisfied dependencies from the smallest blocked module until
// a module repeats and returns the loop it closed, starting and ending at the
// loop's smallest module.
func cycle(mods []*Module, deps [][]int, pending []int) []string {
	start := -1
	for i := range mods {
		if pending[i] > 0 && (start < 0 || compareIDs(mods[i].ID(), mods[start].ID()) < 0) {
			start = i
		}
	}

	seen := make(map[int]int)
	var path []int
	for cur := start; ; {
		if at, ok := seen[cur]; ok {
			loop := path[at:]
			first := 0
			for i := range loop {
				if compareIDs(mods[loop[i]].ID(), mods[loop[first]].ID()) < 0 {
					first = i
				}
			}
			path = append(slices.Concat(loop[first:], loop[:first]), loop[first])
			break
		}
		seen[cur] = len(path)
		path = append(path, cur)
		next := -1
		for _, d := range deps[cur] {
			if pending[d] > 0 && (next < 0 || compareIDs(mods[d].ID(), mods[next].ID()) < 0) {
				next = d
			}
		}
		cur = next
	}

	names := make([]string, len(path))
	for i, m := range path {
		names[i] = mods[m].ID().String()
	}
	return names
}

func compareIDs(a, b format.ModuleID) int {
	if c := slices.Compare(a.Address[:], b.Address[:]); c != 0 {
		return c
	}
	switch {
	case a.Name < b.Name:
		return -1
	case a.Name > b.Name:
		return 1
	}
	return 0
}
