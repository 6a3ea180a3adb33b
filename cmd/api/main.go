package main

// main stays an entry point only; configuration (including .env) is loaded
// by the container inside Serve.
func main() {
	Serve()
}
