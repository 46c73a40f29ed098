package main

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	BadgerFilepath string `envconfig:"BADGER_FILEPATH" required:"true"`
	// INSPECT_LIMIT is the number of most recent messages listed
	Limit int `envconfig:"INSPECT_LIMIT" default:"50"`
	// INSPECT_COLOURS highlights private messages
	Colours bool `envconfig:"INSPECT_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
