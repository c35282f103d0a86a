package main

import (
	"ownnews/cmd/handlers"
	"ownnews/internal/logger"
)

func main() {
	logger.Init()
	handlers.Execute()
}
