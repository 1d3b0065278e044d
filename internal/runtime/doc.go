// Package runtime provides the process-wide concurrent scheduler that all
// asynchronous bridge operations run on. It owns a bounded worker pool,
// tracks which goroutines have attached to it, and contains panics raised
// by scheduled work.
//
// Example:
//
//	s, _ := runtime.New(runtime.Options{})
//	defer s.Close()
//	s.Attach()
//	err := s.Do(ctx, func(ctx context.Context) error { return bringUp(ctx) })
package runtime
