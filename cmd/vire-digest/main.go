// Package main provides the vire-digest CLI.
//
// vire-digest collects recent market news, generates a pre-market digest,
// extracts structured properties from it and delivers it to the configured
// channels.
//
// Usage:
//
//	vire-digest run
//	vire-digest parse digest.md --backfill
//	vire-digest version
package main

func main() {
	Execute()
}
