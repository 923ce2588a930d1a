package forbidden

import "testing"

func TestLaunch(t *testing.T) {
	done := make(chan struct{})
	go func() { close(done) }()
	<-done
}
