package book

import "github.com/tidwall/btree"

// levelSet is an ordered set of occupied ladder indices for one side of
// the book. The matcher reads best-ask as the ask set's minimum and
// best-bid as the bid set's maximum.
type levelSet struct {
	tr *btree.BTreeG[int]
}

func newLevelSet() levelSet {
	return levelSet{
		tr: btree.NewBTreeG(func(a, b int) bool { return a < b }),
	}
}

func (s levelSet) insert(idx int) {
	s.tr.Set(idx)
}

func (s levelSet) erase(idx int) {
	s.tr.Delete(idx)
}

func (s levelSet) min() (int, bool) {
	return s.tr.Min()
}

func (s levelSet) max() (int, bool) {
	return s.tr.Max()
}

func (s levelSet) len() int {
	return s.tr.Len()
}
