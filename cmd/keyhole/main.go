// Command keyhole はサインイン機能付きのWebアプリケーションサーバーを起動する。
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/keyhole/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "keyhole:", err)
		os.Exit(1)
	}
}
