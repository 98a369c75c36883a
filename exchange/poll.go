package exchange

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/daedaleanai/tbgen/hdl"
	"github.com/daedaleanai/tbgen/log"
	"github.com/daedaleanai/tbgen/util"
)

func missingFiles(paths []string) []string {
	return util.FilteredSlice(paths, func(p string) bool { return !util.FileExists(p) })
}

// WaitFor polls until all paths exist. It gives up with an ErrTimeout error after the
// given number of attempts, sleeping interval between attempts.
func WaitFor(ctx context.Context, paths []string, attempts int, interval time.Duration) error {
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 1; ; attempt++ {
		missing := missingFiles(paths)
		if len(missing) == 0 {
			return nil
		}
		if attempt >= attempts {
			return errors.Wrapf(hdl.ErrTimeout, "still missing after %d attempts: %s", attempts, strings.Join(missing, ", "))
		}
		log.Debug("Waiting for %s (attempt %d/%d)\n", strings.Join(missing, ", "), attempt, attempts)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}
