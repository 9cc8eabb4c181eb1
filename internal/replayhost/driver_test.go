package replayhost

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"jitrlcse/internal/rlerrors"
)

// These tests drive a Driver against /bin/sh so they exercise the process
// lifecycle without depending on any real Replay Host binary being present.

func TestRunSuccessExitCodes(t *testing.T) {
	Convey("Given a Driver wrapping a shell that exits 0", t, func() {
		d := NewDriver(".", "/bin/sh")

		Convey("exit code 0 is treated as success", func() {
			d := NewDriver(".", "/bin/sh")
			stdout, err := d.Run(context.Background(), nil, Options{"-c", "echo hello"})
			So(err, ShouldBeNil)
			So(stdout, ShouldContainSubstring, "hello")
		})

		Convey("exit code 3 is treated as success (documented partial failure)", func() {
			stdout, err := d.Run(context.Background(), nil, Options{"-c", "exit 3"})
			So(err, ShouldBeNil)
			So(stdout, ShouldEqual, "")
		})

		Convey("any other nonzero exit code is an ExternalHostError", func() {
			_, err := d.Run(context.Background(), nil, Options{"-c", "exit 7"})
			So(err, ShouldNotBeNil)
			So(err, ShouldHaveSameTypeAs, &rlerrors.ExternalHostError{})
		})
	})
}

func TestRunCancellation(t *testing.T) {
	Convey("Given a Driver running a long-lived child", t, func() {
		d := NewDriver(".", "/bin/sh")
		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan struct{})
		go func() {
			defer close(done)
			_, _ = d.Run(ctx, nil, Options{"-c", "sleep 30"})
		}()

		Convey("cancelling the context terminates the child promptly", func() {
			time.Sleep(50 * time.Millisecond)
			cancel()

			select {
			case <-done:
			case <-time.After(5 * time.Second):
				t.Fatal("Run did not return after cancellation")
			}
		})
	})
}
