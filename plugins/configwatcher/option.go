package configwatcher

import "github.com/bft-labs/sheetshot/pkg/sheetshot"

// WithConfigWatcher returns a sheetshot Option that reloads the instance
// configuration when one of the watched files changes.
//
// Usage:
//
//	s, err := sheetshot.New(cfg,
//	    configwatcher.WithConfigWatcher(configwatcher.Config{
//	        Paths: []string{"/etc/sheetshot/config.toml"},
//	        Load:  reload,
//	    }),
//	)
func WithConfigWatcher(cfg Config) sheetshot.Option {
	return sheetshot.WithPlugin(New(cfg))
}
