package translate

import "time"

// WindowEvent reports how one window ended.
type WindowEvent struct {
	File     string
	Index    int
	Start    int
	End      int
	State    State
	Skipped  bool
	Lines    int
	Attempts int
	Duration time.Duration
	Err      error
}

// FileEvent reports the start or the end of a file.
type FileEvent struct {
	File        string
	Destination string
	Result      Result
	Err         error
}

// Observer receives progress events. Methods are called from the file's
// pipeline goroutine and must not block.
type Observer interface {
	FileStarted(FileEvent)
	WindowDone(WindowEvent)
	FileDone(FileEvent)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) FileStarted(FileEvent)  {}
func (NopObserver) WindowDone(WindowEvent) {}
func (NopObserver) FileDone(FileEvent)     {}

// Observers fans events out to several observers, skipping nil entries.
func Observers(obs ...Observer) Observer {
	var list multiObserver
	for _, o := range obs {
		if o != nil {
			list = append(list, o)
		}
	}
	switch len(list) {
	case 0:
		return NopObserver{}
	case 1:
		return list[0]
	}
	return list
}

type multiObserver []Observer

func (m multiObserver) FileStarted(e FileEvent) {
	for _, o := range m {
		o.FileStarted(e)
	}
}

func (m multiObserver) WindowDone(e WindowEvent) {
	for _, o := range m {
		o.WindowDone(e)
	}
}

func (m multiObserver) FileDone(e FileEvent) {
	for _, o := range m {
		o.FileDone(e)
	}
}
