// Package main is the entry point for Spindle, the manifest resolution
// server and toolchain.
package main

func main() {
	Execute()
}
