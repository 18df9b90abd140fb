package display

import (
	"runtime"

	"github.com/faiface/mainthread"
)

var isMacOS = runtime.GOOS == "darwin"

// MainWrapMaybe runs f with the main OS thread reserved for UI calls.
// Only macOS needs this; elsewhere f runs directly. It must be called
// from main.
func MainWrapMaybe(f func()) {
	if isMacOS {
		mainthread.Run(f)
	} else {
		f()
	}
}

// mainMaybe runs f on the main thread where the platform requires it.
func mainMaybe(f func()) {
	if isMacOS {
		mainthread.Call(f)
	} else {
		f()
	}
}
