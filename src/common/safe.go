package common

import "fmt"

// RunSafely executes fn and converts panics into returned errors tagged with
// scope. Handler and callback boundaries use it so a single faulty callee
// cannot take down the loop that invoked it.
func RunSafely(scope string, fn func() error) (err error) {
	defer func() {
		recovered := recover()
		if recovered == nil {
			return
		}
		err = fmt.Errorf("%s: panic recovered: %v", scope, recovered)
	}()

	if err := fn(); err != nil {
		return fmt.Errorf("%s: %w", scope, err)
	}

	return nil
}
