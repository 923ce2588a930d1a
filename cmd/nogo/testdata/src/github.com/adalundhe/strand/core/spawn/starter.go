package spawn

import "runtime"

func Start(run func()) {
	go func() {
		runtime.LockOSThread()
		run()
	}()
}
