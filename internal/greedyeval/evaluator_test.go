package greedyeval

import (
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"jitrlcse/internal/metrics"
	"jitrlcse/internal/qv"
)

func TestClassifyS6UnchangedTheta(t *testing.T) {
	Convey("Given a corpus whose greedy run reproduces every baseline score exactly", t, func() {
		store := qv.NewStore()
		corpus := "corpus.mc"
		for i, score := range []float64{73.15, 12.0, 50.5} {
			m := qv.Method{Corpus: corpus, Index: i + 1}
			store.SeedBaseline(m, qv.ParseSequence("0"), score, 0, 2)
		}

		blob := strings.Join([]string{
			"; Total bytes of code 1, PerfScore 73.15, num cse 0, num cand 2, seq 0, spmi index 1",
			"; Total bytes of code 2, PerfScore 12.0, num cse 0, num cand 2, seq 0, spmi index 2",
			"; Total bytes of code 3, PerfScore 50.5, num cse 0, num cand 2, seq 0, spmi index 3",
		}, "\n")
		rep := metrics.ParseStream(strings.NewReader(blob))

		result := classify(rep, corpus, store, 0)

		Convey("the geomean is 1.0 within epsilon and every method is classified same", func() {
			So(result.Geomean, ShouldAlmostEqual, 1.0, 1e-4)
			So(result.NumBetter, ShouldEqual, 0)
			So(result.NumSame, ShouldEqual, 3)
			So(result.NumWorse, ShouldEqual, 0)
		})
	})
}

func TestClassifyExcludesZeroCandidateMethods(t *testing.T) {
	Convey("Given a greedy line for a method with num_cand 0", t, func() {
		store := qv.NewStore()
		corpus := "corpus.mc"
		m := qv.Method{Corpus: corpus, Index: 1}
		store.SeedBaseline(m, qv.ParseSequence("0"), 10.0, 0, 0)

		blob := "; Total bytes of code 1, PerfScore 8.0, num cse 0, num cand 0, seq 0, spmi index 1"
		rep := metrics.ParseStream(strings.NewReader(blob))

		result := classify(rep, corpus, store, 0)

		Convey("it contributes nothing to the aggregate", func() {
			So(result.NumBetter+result.NumSame+result.NumWorse, ShouldEqual, 0)
		})
	})
}
