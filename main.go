// Package main provides the linkwalker CLI entrypoint.
//
// Usage:
//
//	linkwalker check <url>
//	linkwalker serve
//	linkwalker walk <url>
//
// See --help for all available options.
package main

func main() {
	Execute()
}
