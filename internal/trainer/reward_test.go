package trainer

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestRewardVectorS3(t *testing.T) {
	Convey("Given the S3 scenario's flat V values", t, func() {
		values := []float64{72.66, 72.66, 72.66, 72.66}

		rewards := rewardVector(values, 72.91)

		Convey("every reward is zero", func() {
			So(rewards, ShouldResemble, []float64{0.0, 0.0, 0.0})
		})
	})

	Convey("Given the S3 scenario's improving-then-flat V values", t, func() {
		values := []float64{72.66, 72.83, 72.91, 72.91}

		rewards := rewardVector(values, 72.91)

		Convey("the rewards round to the documented 5-decimal values", func() {
			So(round5(rewards[0]), ShouldEqual, -0.00233)
			So(round5(rewards[1]), ShouldEqual, -0.00110)
			So(round5(rewards[2]), ShouldEqual, 0.0)
		})
	})
}

func round5(v float64) float64 {
	scaled := v * 100000
	if scaled < 0 {
		scaled -= 0.5
	} else {
		scaled += 0.5
	}
	return float64(int64(scaled)) / 100000
}
