package main

import (
	"fmt"
	"os"

	"github.com/notely-dev/notely/cmd/notely/cmd"
)

// Version is set via ldflags at build time
var Version = "dev"

// @title Notely API
// @version 1.0
// @description Multi-tenant note-taking backend API
// @host localhost:8470
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cmd.Version = Version
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
