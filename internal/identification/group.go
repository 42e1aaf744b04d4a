package identification

import "crost/internal/moviehash"

// Group is one fingerprint plus the input paths that produced it.
type Group struct {
	Fingerprint moviehash.Fingerprint
	Paths       []string
}

// Hash returns the lookup key for the group.
func (g Group) Hash() string {
	return g.Fingerprint.String()
}

// GroupResults buckets successful hash results by fingerprint. Groups and the
// paths inside them keep first-seen order; failed results are ignored.
func GroupResults(results []moviehash.Result) []Group {
	index := make(map[moviehash.Fingerprint]int, len(results))
	groups := make([]Group, 0, len(results))
	for _, res := range results {
		if !res.OK() {
			continue
		}
		if i, ok := index[res.Fingerprint]; ok {
			groups[i].Paths = append(groups[i].Paths, res.Path)
			continue
		}
		index[res.Fingerprint] = len(groups)
		groups = append(groups, Group{Fingerprint: res.Fingerprint, Paths: []string{res.Path}})
	}
	return groups
}

// Hashes returns the distinct lookup keys of groups in order.
func Hashes(groups []Group) []string {
	out := make([]string, 0, len(groups))
	for _, g := range groups {
		out = append(out, g.Hash())
	}
	return out
}
