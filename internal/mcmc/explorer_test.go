package mcmc

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"jitrlcse/internal/qv"
	"jitrlcse/internal/replayhost"
)

// fakeHostScript writes a tiny shell script standing in for the Replay
// Host: given a CSEMask=<hex> argument it prints the S2 scenario's metric
// line for that mask, so Explore can be driven end to end without any real
// compiler present.
func fakeHostScript(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fakehost.sh")

	script := `#!/bin/sh
mask="0"
for arg in "$@"; do
  case "$arg" in
    CSEMask=*) mask="${arg#CSEMask=}" ;;
  esac
done
case "$mask" in
  0) echo "; Total bytes of code 100, PerfScore 73.15, num cse 0, num cand 2, seq 0, spmi index 1" ;;
  1) echo "; Total bytes of code 100, PerfScore 72.91, num cse 1, num cand 2, seq 1,0, spmi index 1" ;;
  2) echo "; Total bytes of code 100, PerfScore 72.90, num cse 1, num cand 2, seq 2,0, spmi index 1" ;;
  3) echo "; Total bytes of code 100, PerfScore 72.66, num cse 2, num cand 2, seq 1,2,0, spmi index 1" ;;
esac
`
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExploreS2FullEnumeration(t *testing.T) {
	Convey("Given M1 with 2 candidates and the S2 fixture host", t, func() {
		script := fakeHostScript(t)
		driver := replayhost.NewDriver(".", script)
		store := qv.NewStore()

		m := qv.Method{Corpus: "corpus.mc", Index: 1}
		store.SeedBaseline(m, qv.ParseSequence("0"), 73.15, 0, 2)

		result := Explore(context.Background(), driver, []qv.Method{m}, store, Options{
			MinCandidatesForRandomTrials: 10,
		})

		Convey("the best sequence and score match the enumeration", func() {
			So(result.Methods, ShouldHaveLength, 1)
			summary := result.Methods[0]
			So(summary.NumRuns, ShouldEqual, 4)
			So(summary.BestPerfScore, ShouldEqual, 72.66)
			So(summary.BestSequence.String(), ShouldEqual, "1,2,0")
		})

		Convey("the Q/V store reflects the best terminal state", func() {
			best := store.BestState(m)
			So(best.Seq, ShouldEqual, "1,2,0")
			val, ok := store.StateValue(best)
			So(ok, ShouldBeTrue)
			So(val, ShouldEqual, 72.66)
		})
	})
}
