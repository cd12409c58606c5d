package main

import "github.com/mvp-joe/omp-impact/internal/cli"

func main() {
	cli.Execute()
}
