package motionplan

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"
)

func TestTimedTermination(t *testing.T) {
	mock := clock.NewMock()
	ptc := TimedTermination(mock, 5*time.Second)
	test.That(t, ptc(), test.ShouldBeFalse)
	mock.Add(4 * time.Second)
	test.That(t, ptc(), test.ShouldBeFalse)
	mock.Add(time.Second)
	test.That(t, ptc(), test.ShouldBeTrue)
}

func TestIterationTermination(t *testing.T) {
	ptc := IterationTermination(3)
	for i := 0; i < 3; i++ {
		test.That(t, ptc(), test.ShouldBeFalse)
	}
	test.That(t, ptc(), test.ShouldBeTrue)
	test.That(t, ptc(), test.ShouldBeTrue)
}

func TestContextAndAnyTermination(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ptc := AnyTermination(NeverTerminate, nil, ContextTermination(ctx))
	test.That(t, ptc(), test.ShouldBeFalse)
	cancel()
	test.That(t, ptc(), test.ShouldBeTrue)

	test.That(t, AnyTermination()(), test.ShouldBeFalse)
}
