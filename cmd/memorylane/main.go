package main

import (
	"os"

	"github.com/avelichko/memorylane/internal/app"
)

func main() {
	os.Exit(app.Run("memorylane", run))
}
