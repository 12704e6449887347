// Package main is the entry point for the patchbay plugin host.
package main

func main() {
	Execute()
}
