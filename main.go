package main

import (
	"log"
	"os"

	"github.com/BitcoinSchema/go-zk-attest/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}
