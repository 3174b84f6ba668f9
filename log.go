package engine

// Logger is the Printf-style logging seam described in SPEC_FULL.md §4.9. It
// deliberately matches the standard library's *log.Logger method set, so
// callers get a working default for free and can adapt any other logger to
// it with a one-line wrapper. No retrieved example in this repository's
// corpus imports a third-party logging library — grep the whole pack and
// the only leveled/structured logging anywhere is stdlib log.Printf — so
// this engine reaches for the same thing rather than inventing a dependency
// nothing in the corpus grounds.
type Logger interface {
	Printf(format string, args ...any)
}

// noopLogger is the default: logging never affects evaluation semantics,
// so a caller that supplies none pays nothing for it.
type noopLogger struct{}

func (noopLogger) Printf(string, ...any) {}
