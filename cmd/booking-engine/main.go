package main

import "booking-engine/internal/cli"

func main() {
	cli.Execute()
}
