package main

import (
	"context"
	"os"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/vellumdb/vellum/config"
	"github.com/vellumdb/vellum/store/mongostore"
)

// openStore loads configuration, builds the logger, and connects to
// the configured deployment.
func openStore(ctx context.Context) (*config.Config, *mongostore.Store, *zap.SugaredLogger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	log, err := newLogger(cfg.Debug)
	if err != nil {
		return nil, nil, nil, err
	}

	st, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.Database, cfg.ConnectTimeout, log)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, st, log, nil
}

func newLogger(debug bool) (*zap.SugaredLogger, error) {
	var logger *zap.Logger
	var err error
	if debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

func readJSONFile(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
