package internal

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	source string
	watch  bool
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithSource sets the Markdown file to bundle.
func WithSource(path string) Option {
	return func(a *application) {
		a.source = path
	}
}

// WithWatch enables re-bundling on source file changes.
func WithWatch(enabled bool) Option {
	return func(a *application) {
		a.watch = enabled
	}
}
