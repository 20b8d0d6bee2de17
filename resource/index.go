package resource

// kindIndex maintains per-kind counts and insertion-ordered buckets so that
// feasibility checks are O(1) and selecting k resources is O(k).
type kindIndex struct {
	counts  map[string]int
	buckets map[string][]Resource
}

func newKindIndex() *kindIndex {
	return &kindIndex{
		counts:  make(map[string]int),
		buckets: make(map[string][]Resource),
	}
}

func (idx *kindIndex) add(r Resource) {
	kind := r.Kind()
	idx.counts[kind]++
	idx.buckets[kind] = append(idx.buckets[kind], r)
}

func (idx *kindIndex) remove(r Resource) bool {
	kind := r.Kind()
	bucket := idx.buckets[kind]

	for i, candidate := range bucket {
		if candidate == r {
			idx.buckets[kind] = append(bucket[:i], bucket[i+1:]...)
			idx.counts[kind]--
			return true
		}
	}

	return false
}

func (idx *kindIndex) count(kind string) int {
	return idx.counts[kind]
}

func (idx *kindIndex) bucket(kind string) []Resource {
	return idx.buckets[kind]
}
