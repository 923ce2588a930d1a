package spawn

func Start(run func()) {
	go run()
}
