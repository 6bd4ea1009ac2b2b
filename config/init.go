package config

import (
	"log"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"github.com/Raman369AI/fileProcessor/internal/logger"
	"github.com/Raman369AI/fileProcessor/internal/tracing"
)

func InitConfig() (*Config, error) {
	config := &Config{
		AppConfig:      &AppConfig{},
		GraphConfig:    &GraphConfig{},
		MonitorConfig:  &MonitorConfig{},
		QueueConfig:    &QueueConfig{},
		WorkerConfig:   &WorkerConfig{},
		DatabaseConfig: &DatabaseConfig{},
		StorageConfig:  &StorageConfig{},
		Logger:         &logger.Config{},
		Tracing:        &tracing.JaegerConfig{},
	}

	err := godotenv.Load()
	if err != nil {
		log.Print("Unable to load .env file")
	}

	err = env.Parse(config)
	if err != nil {
		log.Fatalf("Error loading fileprocessor config: %v", err)
	}

	return config, nil
}
