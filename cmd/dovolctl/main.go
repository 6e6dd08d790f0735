package main

import (
	"context"
	"log"

	"github.com/dmitrijs2005/dovol/internal/admincli"
	"github.com/dmitrijs2005/dovol/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := admincli.NewApp(cfg)

	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	app.Run(ctx)

}
