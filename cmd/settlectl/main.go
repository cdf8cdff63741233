package main

import (
	"context"
	"net/http"
	"os"

	"github.com/floroz/buynow/internal/cli"
)

func main() {
	os.Exit(cli.Execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr, http.DefaultClient))
}
