package runlog

import "fmt"

// Options selects and configures a Store implementation.
type Options struct {
	// Backend is "jsonl", "sqlite" or "none".
	Backend    string
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Open creates the Store described by opts. A jsonl backend with a positive
// MaxSizeMB rotates its file.
func Open(opts Options) (Store, error) {
	switch opts.Backend {
	case "none":
		return NopStore{}, nil
	case "sqlite":
		return NewSQLiteStore(opts.Path)
	case "jsonl", "":
		if opts.MaxSizeMB > 0 {
			return NewRotatingJSONLStore(opts.Path, opts.MaxSizeMB, opts.MaxBackups, opts.MaxAgeDays)
		}
		return NewJSONLStore(opts.Path)
	default:
		return nil, fmt.Errorf("unknown run log backend %s", opts.Backend)
	}
}
