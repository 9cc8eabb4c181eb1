package trainerconfig

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestTrainingFromYaml(t *testing.T) {
	Convey("Given a policygradient config document", t, func() {
		path := writeConfig(t, `
kind: policygradient
def:
  rounds: 500
  minibatchSize: 10
  alpha: 0.05
  salt: 7
  initialParameters: [0.1, 0.2]
`)

		cfg, err := TrainingFromYaml(path)

		Convey("recognized fields decode and unset fields take their documented defaults", func() {
			So(err, ShouldBeNil)
			So(cfg.Rounds, ShouldEqual, 500)
			So(cfg.MinibatchSize, ShouldEqual, 10)
			So(cfg.Alpha, ShouldEqual, 0.05)
			So(cfg.SummaryInterval, ShouldEqual, defaultSummaryInterval)
			So(cfg.StopOnStable, ShouldEqual, defaultStopOnStable)
			So(cfg.ParamVector(4), ShouldResemble, []float64{0.1, 0.2, 0, 0})
		})
	})
}

func TestTrainingFromYamlWrongKind(t *testing.T) {
	Convey("Given a config document with an unexpected kind", t, func() {
		path := writeConfig(t, `
kind: mcmc
def:
  salt: 1
`)

		_, err := TrainingFromYaml(path)

		Convey("loading it as a policygradient config fails", func() {
			So(err, ShouldNotBeNil)
		})
	})
}

func TestMCMCFromYamlDefaults(t *testing.T) {
	Convey("Given an mcmc config document omitting the trial threshold", t, func() {
		path := writeConfig(t, `
kind: mcmc
def:
  numRandomTrials: 64
`)

		cfg, err := MCMCFromYaml(path)

		Convey("MinCandidatesForRandomTrials defaults to 10", func() {
			So(err, ShouldBeNil)
			So(cfg.MinCandidatesForRandomTrials, ShouldEqual, 10)
			So(cfg.NumRandomTrials, ShouldEqual, 64)
		})
	})
}
