package qv

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestPrettyIsLeftInverseOfAppendStop(t *testing.T) {
	Convey("Given sequences with and without a trailing stop", t, func() {
		seq := ParseSequence("1,2")

		Convey("pretty(seq+\",0\") == pretty(seq) (P7)", func() {
			withStop := seq.Append(StopAction)
			So(withStop.Pretty(), ShouldEqual, seq.Pretty())
		})

		Convey(`pretty("0") == "" (P7)`, func() {
			So(ParseSequence("0").Pretty(), ShouldEqual, "")
		})
	})
}

func TestTerminalDetection(t *testing.T) {
	Convey("Given sequences ending and not ending in stop", t, func() {
		So(ParseSequence("1,2,0").Terminal(), ShouldBeTrue)
		So(ParseSequence("0").Terminal(), ShouldBeTrue)
		So(ParseSequence("1,2").Terminal(), ShouldBeFalse)
		So(ParseSequence("").Terminal(), ShouldBeFalse)
	})
}
