package engine

import "time"

// Progress describes how far a boot has got.
// Passed to ProgressCallback on every state change and after every DMA chunk.
type Progress struct {
	// State is the boot state being reported:
	//   StateLoading              - segments are being copied (one report per chunk)
	//   StateInterruptsConfigured - interrupt routing is programmed
	//   StateStarting             - the start pulse has been issued
	//   StateRunning              - the falcon is up
	//   StateBootFailed           - a wait timed out
	State State

	// Chunk is the number of DMA chunks completed
	Chunk int

	// TotalChunks is the number of DMA chunks in the plan
	TotalChunks int

	// Percentage is the completion percentage (0.0 to 100.0)
	Percentage float64

	// BytesTransferred counts bytes moved by DMA so far. Every chunk moves
	// a full 256 bytes, including a trailing partial one.
	BytesTransferred int

	// ElapsedTime is the time since the boot started
	ElapsedTime time.Duration
}

// ProgressCallback is called synchronously from Boot. It must not call back
// into the Handle.
//
// Example:
//
//	h := engine.New(bus, mgr,
//	    engine.WithProgressCallback(func(p engine.Progress) {
//	        fmt.Printf("[%s] %.0f%% chunk %d/%d\n",
//	            p.State, p.Percentage, p.Chunk, p.TotalChunks)
//	    }),
//	)
type ProgressCallback func(Progress)

// Logger is an optional logging interface. The logging package provides a
// klog implementation.
//
// Example with standard log package:
//
//	type StdLogger struct{}
//	func (l *StdLogger) Debug(msg string, kv ...interface{}) { log.Println(msg, kv) }
//	func (l *StdLogger) Info(msg string, kv ...interface{})  { log.Println(msg, kv) }
//	func (l *StdLogger) Error(msg string, kv ...interface{}) { log.Println(msg, kv) }
//
//	h := engine.New(bus, mgr, engine.WithLogger(&StdLogger{}))
type Logger interface {
	// Debug logs a debug message with optional key-value pairs
	Debug(msg string, keysAndValues ...interface{})

	// Info logs an info message with optional key-value pairs
	Info(msg string, keysAndValues ...interface{})

	// Error logs an error message with optional key-value pairs
	Error(msg string, keysAndValues ...interface{})
}
