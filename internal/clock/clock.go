package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock supplies the current time to the ledger, reference generator and
// query service.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

func NewSystemClock() Clock {
	return SystemClock{}
}

var Module = fx.Module("clock",
	fx.Provide(NewSystemClock),
)
