// Package logging provides a klog-backed implementation of engine.Logger.
//
// Debug messages are emitted at verbosity DebugLevel, so they only appear
// when the binary runs with -v=4 or higher. Info and Error always appear.
package logging

import "k8s.io/klog/v2"

// DebugLevel is the klog verbosity of Debug messages.
const DebugLevel klog.Level = 4

// Logger writes structured key/value messages through klog.
type Logger struct {
	name string
}

// New returns a Logger that tags every message with logger=name. An empty
// name adds no tag.
//
// Example:
//
//	h := engine.New(bus, mgr, engine.WithLogger(logging.New("nvdec")))
func New(name string) *Logger {
	return &Logger{name: name}
}

// Debug logs at DebugLevel.
func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	klog.V(DebugLevel).InfoS(msg, l.with(keysAndValues)...)
}

// Info logs unconditionally.
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	klog.InfoS(msg, l.with(keysAndValues)...)
}

// Error logs at error severity. A value under the "error" key is passed to
// klog as the error itself.
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	err, rest := splitError(keysAndValues)
	klog.ErrorS(err, msg, l.with(rest)...)
}

func (l *Logger) with(kv []interface{}) []interface{} {
	if l == nil || l.name == "" {
		return kv
	}
	return append([]interface{}{"logger", l.name}, kv...)
}

// splitError removes the first "error" pair holding an error value.
func splitError(kv []interface{}) (error, []interface{}) {
	for i := 0; i+1 < len(kv); i += 2 {
		err, ok := kv[i+1].(error)
		if kv[i] != "error" || !ok {
			continue
		}
		rest := make([]interface{}, 0, len(kv)-2)
		rest = append(rest, kv[:i]...)
		rest = append(rest, kv[i+2:]...)
		return err, rest
	}
	return nil, kv
}
