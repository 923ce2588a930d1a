package forbidden

func launchInline() {
	go func() { // want "raw 'go' statement forbidden - use spawn.Spawn\\(\\) from core/spawn"
		println("inline goroutine")
	}()
}

func launchNamed() {
	go work() // want "raw 'go' statement forbidden - use spawn.Spawn\\(\\) from core/spawn"
}

func work() {
	println("named function")
}

func launchMethod() {
	w := &worker{}
	go w.run() // want "raw 'go' statement forbidden - use spawn.Spawn\\(\\) from core/spawn"
}

type worker struct{}

func (w *worker) run() {}
