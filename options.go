package halftone

// Option configures Transform and NewProcessor.
//
// Example:
//
//	// Single-threaded, e.g. inside an already parallel batch job
//	out := halftone.Transform(img, s, halftone.WithWorkers(1))
type Option func(*options)

type options struct {
	workers int
}

func defaultOptions() options {
	return options{
		workers: 0, // GOMAXPROCS
	}
}

// WithWorkers sets how many goroutines a transform may use. Zero or a
// negative value selects GOMAXPROCS; 1 runs everything on the calling
// goroutine. The output does not depend on this setting.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}
