package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/turnon/taskdb/seed"
	"github.com/turnon/taskdb/server"
)

func main() {
	fmt.Printf("pid: %d\n", os.Getpid())

	cfgFile := flag.String("s", "", "server config")
	seedCount := flag.Int("seed", 0, "insert n random tasks and exit")
	flag.Parse()

	if *cfgFile == "" {
		flag.Usage()
		return
	}

	if *seedCount > 0 {
		seed.Run(*cfgFile, *seedCount)
		return
	}

	server.Run(*cfgFile)
}
