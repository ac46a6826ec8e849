package main

import (
	"context"
	"os"

	"github.com/dmitrijs2005/docvault/internal/vaultctl"
)

func main() {
	os.Exit(vaultctl.Execute(context.Background(), vaultctl.DefaultEnv(), os.Args[1:]))
}
