package selector

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"jitrlcse/internal/qv"
)

func seedMethod(store *qv.Store, corpus string, idx int, numCses, numCand uint) qv.Method {
	m := qv.Method{Corpus: corpus, Index: idx}
	store.SeedBaseline(m, qv.ParseSequence("0"), 10.0, numCses, numCand)
	return m
}

func TestSelectFiltersByCandidateBounds(t *testing.T) {
	Convey("Given a corpus with varying candidate counts", t, func() {
		store := qv.NewStore()
		m1 := seedMethod(store, "c", 1, 1, 2)
		m2 := seedMethod(store, "c", 2, 1, 8)
		m3 := seedMethod(store, "c", 3, 0, 5)
		corpus := []qv.Method{m1, m2, m3}

		Convey("methods outside [min,max] or with zero CSEs are excluded", func() {
			selected := Select(corpus, store, Options{MinCandidates: 1, MaxCandidates: 5})
			So(selected, ShouldResemble, []qv.Method{m1})
		})
	})
}

func TestSelectUseSpecificIgnoresFilter(t *testing.T) {
	Convey("Given UseSpecific indices", t, func() {
		store := qv.NewStore()
		m1 := seedMethod(store, "c", 1, 0, 0)
		m2 := seedMethod(store, "c", 2, 1, 9)
		corpus := []qv.Method{m1, m2}

		Convey("exactly those indices are returned regardless of filter bounds", func() {
			selected := Select(corpus, store, Options{
				MinCandidates: 100,
				MaxCandidates: 200,
				UseSpecific:   []int{1},
			})
			So(selected, ShouldResemble, []qv.Method{m1})
		})
	})
}

func TestSelectCapsAtNumMethods(t *testing.T) {
	Convey("Given more matching methods than NumMethods", t, func() {
		store := qv.NewStore()
		m1 := seedMethod(store, "c", 1, 1, 1)
		m2 := seedMethod(store, "c", 2, 1, 1)
		m3 := seedMethod(store, "c", 3, 1, 1)
		corpus := []qv.Method{m1, m2, m3}

		Convey("only the first NumMethods survive", func() {
			selected := Select(corpus, store, Options{MinCandidates: 0, MaxCandidates: 10, NumMethods: 2})
			So(selected, ShouldResemble, []qv.Method{m1, m2})
		})
	})
}

func TestSelectRandomSampleIsReproducible(t *testing.T) {
	Convey("Given RandomSample with a fixed seed", t, func() {
		store := qv.NewStore()
		var corpus []qv.Method
		for i := 1; i <= 10; i++ {
			corpus = append(corpus, seedMethod(store, "c", i, 1, 1))
		}

		Convey("two selections with the same seed produce the same order", func() {
			a := Select(corpus, store, Options{MinCandidates: 0, MaxCandidates: 10, RandomSample: true, RandomSampleSeed: 42})
			b := Select(corpus, store, Options{MinCandidates: 0, MaxCandidates: 10, RandomSample: true, RandomSampleSeed: 42})
			So(a, ShouldResemble, b)
		})
	})
}

func TestSelectUseAdditionalAppendsAfterFiltering(t *testing.T) {
	Convey("Given a filter that would exclude a method, named via UseAdditional", t, func() {
		store := qv.NewStore()
		m1 := seedMethod(store, "c", 1, 1, 1)
		m2 := seedMethod(store, "c", 2, 1, 50)
		corpus := []qv.Method{m1, m2}

		Convey("the additional method is appended even though it failed the filter", func() {
			selected := Select(corpus, store, Options{MinCandidates: 0, MaxCandidates: 5, UseAdditional: []int{2}})
			So(selected, ShouldResemble, []qv.Method{m1, m2})
		})
	})
}
