package main

import "github.com/stleox/seefaas/pkg/cmd"

func main() {
	cmd.Execute()
}
