package main

import (
	"douyin-scribe/cmd/d2t/cmd"
	"douyin-scribe/internal/config"
)

func main() {
	config.LoadEnv()
	cmd.Execute()
}
