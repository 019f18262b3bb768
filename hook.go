package proxykit

import "time"

// AfterCallFunc is a hook invoked after every successful dispatch.
//
// It receives the called method, its arguments, the raw results and the time
// the call started, and returns the results handed back to the caller:
//
//	func timing(method string, args, results []any, start time.Time) []any {
//	    log.Printf("%s took %v", method, time.Since(start))
//	    return results
//	}
//
// Hooks may replace results (for example to post-process a value) but must
// keep the slice length unchanged. Hooks are not called when the target
// returns a non-nil error or panics.
type AfterCallFunc func(method string, args []any, results []any, start time.Time) []any

// chainAfterCall combines multiple hooks into a single one.
// The first hook in the slice runs first and its output feeds the next.
func chainAfterCall(hooks []AfterCallFunc) AfterCallFunc {
	if len(hooks) == 0 {
		return nil
	}
	if len(hooks) == 1 {
		return hooks[0]
	}
	return func(method string, args []any, results []any, start time.Time) []any {
		for _, h := range hooks {
			results = h(method, args, results, start)
		}
		return results
	}
}
