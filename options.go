package engine

// Option configures a Sheet at construction time.
type Option func(*Sheet)

// WithLogger attaches a Logger that receives a line for every SetCell
// rejection, CopyRect commit, and Save/Load outcome (§4.9). Passing nil
// leaves the default no-op logger in place.
func WithLogger(l Logger) Option {
	return func(s *Sheet) {
		if l != nil {
			s.logger = l
		}
	}
}
