package main

import "github.com/ericnjogu/video-object-detection/cmd"

func main() {
	cmd.Execute()
}
