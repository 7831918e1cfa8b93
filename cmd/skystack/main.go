package main

import "skystack/internal/skystack"

func main() {
	skystack.Main()
}
