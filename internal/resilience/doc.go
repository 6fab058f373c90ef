// Package resilience groups the fault-tolerance helpers used around every
// upstream call: bounded retries with jitter and per-source circuit breakers.
//
// Usage Example:
//
//	cb := circuitbreaker.New(circuitbreaker.SourceConfig("OSCS"))
//	err := retry.WithBackoff(ctx, retry.FeedPageConfig(), func() error {
//	    _, err := cb.Execute(func() (interface{}, error) {
//	        return nil, fetchPage()
//	    })
//	    return err
//	})
package resilience
