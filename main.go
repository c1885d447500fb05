package main

import "github.com/cubayang/FOAM-FSI/cmd"

func main() {
	cmd.Execute()
}
