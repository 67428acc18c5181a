package main

import (
	"mythos/cmd/handlers"
	"mythos/internal/logger"
)

func main() {
	logger.Init() // Initialize the logger
	handlers.Execute()
}
