package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shimmeringbee/zigbee"

	"github.com/supby/zbridge/internal/configuration"
	"github.com/supby/zbridge/internal/db"
	"github.com/supby/zbridge/internal/definitions"
	"github.com/supby/zbridge/internal/dispatch"
	"github.com/supby/zbridge/internal/logger"
	"github.com/supby/zbridge/internal/metric"
	"github.com/supby/zbridge/internal/mqtt"
	"github.com/supby/zbridge/internal/router"
	"github.com/supby/zbridge/internal/topic"
	"github.com/supby/zbridge/internal/zcldef"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var configFile = flag.String("c", "./configuration.yaml", "path to config file name")
	flag.Parse()

	log := logger.GetLogger("[main]", logger.LogLevelError)

	configService, err := configuration.Init(*configFile)
	if err != nil {
		log.Error("Configuration initialization error: %v", err)
		os.Exit(1)
	}

	cfg := configService.GetConfiguration()
	level := logger.ParseLevel(cfg.LogLevel)
	log = logger.GetLogger("[main]", level)

	database, err := db.NewDeviceDB(cfg.DBPath, log.WithPrefix("[db]"))
	if err != nil {
		log.Error("DB initialization error: %v", err)
		os.Exit(1)
	}
	defer database.Close(ctx)

	zclDefService, err := zcldef.New(cfg.ZCLDefinitionsFile)
	if err != nil {
		log.Error("ZCL definitions error: %v", err)
		os.Exit(1)
	}

	registry := definitions.NewRegistry()
	if cfg.DefinitionsFile != "" {
		registry, err = definitions.LoadFile(cfg.DefinitionsFile)
		if err != nil {
			log.Error("Device definitions error: %v", err)
			os.Exit(1)
		}
	}
	log.Info("Loaded %d device definitions", registry.Len())

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := metric.New(promRegistry)
	if err != nil {
		log.Error("Metrics initialization error: %v", err)
		os.Exit(1)
	}
	if cfg.Metrics.Address != "" {
		metricsServer := metric.NewServer(cfg.Metrics.Address, cfg.Metrics.Path, promRegistry, log.WithPrefix("[metrics]"))
		metricsServer.StartAsync()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			metricsServer.Stop(shutdownCtx)
		}()
	}

	zRouter := router.NewZigbeeRouter(zclDefService, database, configService, metrics, log.WithPrefix("[zigbee]"))

	lookup := db.NewDeviceLookup(database, configService)
	devicePublishLogger := log.WithPrefix("[device publish]")
	devicePublish, err := router.NewDevicePublish(router.DevicePublishOptions{
		Parser:     topic.NewParser(configService, cfg.MqttConfiguration.EndpointNames),
		Lookup:     lookup,
		Registry:   registry,
		Dispatcher: dispatch.New(devicePublishLogger),
		Network:    zRouter,
		Logger:     devicePublishLogger,
		Metrics:    metrics,
	})
	if err != nil {
		log.Error("Device publish initialization error: %v", err)
		os.Exit(1)
	}

	mqttClient, err := mqtt.NewClient(configService, log.WithPrefix("[mqtt]"))
	if err != nil {
		log.Error("MQTT initialization error: %v", err)
		os.Exit(1)
	}
	defer mqttClient.Dispose()

	mqttRouter := router.NewMQTTRouter(mqttClient, configService, devicePublish, zRouter, database, lookup, registry, log.WithPrefix("[mqtt router]"))

	setupSubscriptions(ctx, mqttRouter, zRouter)

	if err := zRouter.StartAsync(ctx); err != nil {
		log.Error("Zigbee initialization error: %v", err)
		os.Exit(1)
	}
	defer zRouter.Stop()

	mqttRouter.Start()
	defer mqttRouter.Stop()

	waitForInterruptSignal()

	log.Info("exiting app...")
	cancel()
}

func setupSubscriptions(ctx context.Context, mqttRouter router.MQTTRouter, zRouter router.ZigbeeRouter) {
	zRouter.SubscribeOnDeviceMessage(func(devMsg mqtt.DeviceMessage) {
		mqttRouter.PublishDeviceMessage(devMsg)
	})
	zRouter.SubscribeOnDeviceJoin(func(e zigbee.NodeJoinEvent) {
		mqttRouter.PublishBridgeDevices(ctx)
	})
	zRouter.SubscribeOnDeviceLeave(func(e zigbee.NodeLeaveEvent) {
		mqttRouter.PublishBridgeDevices(ctx)
	})
}

func waitForInterruptSignal() {
	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, os.Interrupt, syscall.SIGTERM)
	defer func() {
		signal.Stop(sigchan)
	}()
	<-sigchan
}
