package main

import "resume-tailor/internal/cli"

func main() {
	cli.Execute()
}
