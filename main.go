// dirpack downloads a directory or a single file from a GitHub repository
// without cloning it.
package main

import "dirpack/cmd"

func main() {
	cmd.Execute()
}
