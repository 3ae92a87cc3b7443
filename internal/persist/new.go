package persist

import "fmt"

// New builds the Saver for a strategy name. tabs is only needed by the
// browser strategy.
func New(strategy, downloadsDir, directory string, tabs TabRunner) (Saver, error) {
	switch strategy {
	case "", StrategyDownloads:
		return NewDownloadsSaver(downloadsDir), nil
	case StrategyDirectory:
		return NewDirectorySaver(directory), nil
	case StrategyBrowser:
		if tabs == nil {
			return nil, fmt.Errorf("save strategy %q needs an attached browser tab", strategy)
		}
		return NewBrowserSaver(tabs, downloadsDir), nil
	default:
		return nil, fmt.Errorf("unknown save strategy %q", strategy)
	}
}
