package main

import (
	"log"

	"github.com/kataras/iris/v12"

	"github.com/LeeDev428/rarevault-e-comm/internal/config"
	"github.com/LeeDev428/rarevault-e-comm/internal/logger"
	"github.com/LeeDev428/rarevault-e-comm/internal/server"
)

func main() {
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger.Init(false)

	app := iris.New()
	server.RegisterRoutes(app, cfg)

	addr := cfg.Server.Addr()
	log.Printf("web server listening on %s", addr)
	if err := app.Run(iris.Addr(addr)); err != nil {
		log.Fatalf("failed to run web server: %v", err)
	}
}
