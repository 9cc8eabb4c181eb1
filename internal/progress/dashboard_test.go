package progress

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"jitrlcse/internal/qv"
	"jitrlcse/internal/trainer"
)

func TestConvertProducesOneRowPerMethod(t *testing.T) {
	Convey("Given a round summary covering two methods", t, func() {
		snap := Snapshot{
			Round: trainer.RoundSummary{
				Round: 3,
				MethodStats: []trainer.MethodRoundStats{
					{Method: qv.Method{Corpus: "c.mc", Index: 1}, NumSucceeded: 24, NumGacked: 1},
					{Method: qv.Method{Corpus: "c.mc", Index: 2}, NumSucceeded: 20, NumGacked: 5},
				},
			},
		}

		rows := Convert(snap)

		Convey("each method produces exactly one row", func() {
			So(rows, ShouldHaveLength, 2)
			So(rows[0].NumSucceeded, ShouldEqual, 24)
			So(rows[1].NumGacked, ShouldEqual, 5)
		})
	})
}

func TestDashboardPublishDropsWhenBacklogged(t *testing.T) {
	Convey("Given a dashboard whose channel is full", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		d, err := NewDashboard(ctx, "127.0.0.1:0")
		So(err, ShouldBeNil)

		for i := 0; i < 32; i++ {
			d.Publish(Snapshot{Round: trainer.RoundSummary{Round: i}})
		}

		Convey("Publish never blocks the caller", func() {
			done := make(chan struct{})
			go func() {
				d.Publish(Snapshot{Round: trainer.RoundSummary{Round: 999}})
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(time.Second):
				t.Fatal("Publish blocked")
			}
		})
	})
}
