package cache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"jitrlcse/internal/qv"
	"jitrlcse/internal/rlerrors"
)

func TestSeedFromStdoutS1(t *testing.T) {
	Convey("Given the S1 baseline seeding scenario", t, func() {
		blob := "; Total bytes of code 205, PerfScore 73.15, num cse 0, num cand 2, seq 0, spmi index 96689"
		store := qv.NewStore()

		methods := seedFromStdout("corpus.mc", blob, store)

		Convey("the method is retained and seeded as baseline", func() {
			So(methods, ShouldHaveLength, 1)
			m := methods[0]
			So(m.Index, ShouldEqual, 96689)

			st, ok := store.BaselineState(m)
			So(ok, ShouldBeTrue)
			So(st.Seq, ShouldEqual, "0")

			val, ok := store.StateValue(st)
			So(ok, ShouldBeTrue)
			So(val, ShouldEqual, 73.15)
		})
	})
}

func TestSeedFromStdoutDiscardsZeroCandidates(t *testing.T) {
	Convey("Given a baseline line with num cand 0", t, func() {
		blob := strings.Join([]string{
			"; Total bytes of code 10, PerfScore 5.0, num cse 0, num cand 0, seq 0, spmi index 1",
			"; Total bytes of code 20, PerfScore 9.0, num cse 1, num cand 3, seq 0, spmi index 2",
		}, "\n")
		store := qv.NewStore()

		methods := seedFromStdout("corpus.mc", blob, store)

		Convey("only the method with candidates is retained", func() {
			So(methods, ShouldHaveLength, 1)
			So(methods[0].Index, ShouldEqual, 2)
		})
	})
}

func TestBuildMethodListMissingCorpusIsConfigurationError(t *testing.T) {
	Convey("Given a nonexistent corpus path", t, func() {
		dir := t.TempDir()
		store := qv.NewStore()

		_, err := BuildMethodList(nil, filepath.Join(dir, "missing.mc"), dir, nil, store)

		Convey("BuildMethodList fails fast with a ConfigurationError", func() {
			So(err, ShouldNotBeNil)
			So(err, ShouldHaveSameTypeAs, &rlerrors.ConfigurationError{})
		})
	})
}

func TestBuildMethodListReadsExistingSidecar(t *testing.T) {
	Convey("Given a corpus with a pre-existing sidecar", t, func() {
		dir := t.TempDir()
		corpus := filepath.Join(dir, "corpus.mc")
		So(os.WriteFile(corpus, []byte("placeholder"), 0o644), ShouldBeNil)

		sidecar := SidecarPath(corpus)
		blob := "; Total bytes of code 205, PerfScore 73.15, num cse 0, num cand 2, seq 0, spmi index 1"
		So(os.WriteFile(sidecar, []byte(blob), 0o644), ShouldBeNil)

		store := qv.NewStore()
		methods, err := BuildMethodList(nil, corpus, dir, nil, store)

		Convey("the sidecar is loaded without invoking the driver", func() {
			So(err, ShouldBeNil)
			So(methods, ShouldHaveLength, 1)
		})
	})
}
