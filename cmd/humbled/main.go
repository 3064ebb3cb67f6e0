package main

import (
	"flag"
	"log"
	"os"

	"github.com/grand-thief-cash/humble/internal/application"
	"github.com/grand-thief-cash/humble/internal/consts"
)

func main() {
	env := flag.String("env", envOr(consts.ENV_VAR_ENV, consts.ENV_DEVELOPMENT), "running environment (development|production)")
	configPath := flag.String("config", envOr(consts.ENV_VAR_CONFIG, consts.DEFAULT_CONFIG_PATH), "path to the yaml or json config file")
	flag.Parse()

	app := application.NewApp(*env, *configPath)
	if err := app.Run(); err != nil {
		log.Fatalf("humble exited: %v", err)
	}
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}
