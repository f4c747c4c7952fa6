// Package shutdown coordinates graceful process termination.
//
// A Handler waits for SIGINT/SIGTERM, a programmatic Trigger, or context
// cancellation, then runs registered hooks in reverse order under one
// shared timeout:
//
//	h := shutdown.NewHandler(10*time.Second, logger)
//	h.OnShutdown("redis", srv.Shutdown)
//	err := h.Wait(ctx)
package shutdown
