package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"bulldozer-service/internal/actuator"
	"bulldozer-service/internal/config"
	"bulldozer-service/internal/controller"
	"bulldozer-service/internal/core"
	"bulldozer-service/internal/hardware"
	"bulldozer-service/internal/logger"
	"bulldozer-service/internal/messaging"
)

func main() {
	var configPath string
	var serviceLogLevel int
	flag.StringVar(&configPath, "config", "", "Path to YAML configuration file")
	flag.IntVar(&serviceLogLevel, "log", 3, "Service log level (0=NONE, 1=ERROR, 2=WARN, 3=INFO, 4=DEBUG)")
	flag.Parse()

	// Create standard logger with appropriate format
	var stdLogger *log.Logger
	if os.Getenv("INVOCATION_ID") != "" {
		// Running under systemd, use minimal format
		stdLogger = log.New(os.Stdout, "", 0)
	} else {
		// Running interactively, use timestamps
		stdLogger = log.New(os.Stdout, "", log.LstdFlags|log.Lmicroseconds|log.Lmsgprefix)
	}

	l := logger.NewLogger(stdLogger, logger.LogLevel(serviceLogLevel))

	l.Infof("Starting bulldozer service...")

	cfg, defaulted, err := config.Load(configPath)
	if err != nil {
		l.Fatalf("Failed to load configuration: %v", err)
	}
	if configPath == "" {
		l.Warnf("No configuration file given, using defaults")
	}
	for _, field := range defaulted {
		l.Debugf("Config field %s not set, using default", field)
	}

	driver, err := hardware.NewMotorDriver(&cfg.Motors, l)
	if err != nil {
		l.Warnf("Motor driver unavailable: %v", err)
	}
	mapper := actuator.New(cfg, driver, l)

	input := controller.New(cfg.Controller, controller.OpenEvdev, l)
	estop := hardware.NewEmergencyStop(&cfg.Emergency, l)

	var redis core.Telemetry
	if cfg.Redis.Enabled {
		redis = messaging.NewRedisClient(cfg.Redis.Host, cfg.Redis.Port, l)
	}

	system := core.NewDriveSystem(cfg, mapper, input, redis, estop, l)
	if err := system.Start(context.Background()); err != nil {
		l.Fatalf("Failed to start system: %v", err)
	}

	l.Infof("System started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	l.Infof("Received signal %v, shutting down...", sig)
	system.Shutdown()
	l.Infof("Shutdown complete")
}
