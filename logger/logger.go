// Package logger defines the structured logging contract shared by every
// namereg component, plus a stdlib-backed and a no-op implementation.
package logger

// Logger is a leveled, structured logger. Keys and values are passed as
// alternating arguments: Infow("committed", "fingerprint", fp, "index", 12).
type Logger interface {
	Debugw(msg string, keysAndValues ...any)
	Infow(msg string, keysAndValues ...any)
	Warnw(msg string, keysAndValues ...any)
	Errorw(msg string, keysAndValues ...any)

	// Fatalw logs and terminates the process.
	Fatalw(msg string, keysAndValues ...any)

	// With returns a logger that adds the given key-value pairs to every entry.
	With(keysAndValues ...any) Logger

	// WithComponent tags entries with the emitting component (e.g. "registry").
	WithComponent(name string) Logger

	// WithTx tags entries with the ledger index of the transaction being applied.
	WithTx(index uint64) Logger
}
