// Command kalmas-net serves the kalmas.net site and builds its crawler
// snapshots.
package main

import "github.com/kalmas/kalmas-net/cmd"

func main() {
	cmd.Execute()
}
