package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"dialog-analyzer/pkg/analyzer"
	"dialog-analyzer/pkg/config"
	http_server "dialog-analyzer/pkg/http"
	"dialog-analyzer/pkg/media"
	"dialog-analyzer/pkg/messaging"
	"dialog-analyzer/pkg/metrics"
	"dialog-analyzer/pkg/version"
)

var (
	logger     = logrus.New()
	appConfig  *config.Config
	amqpClient *messaging.AMQPClient
	httpServer *http_server.Server

	// Context for graceful shutdown
	rootCtx    context.Context
	rootCancel context.CancelFunc
)

func main() {
	filePath := flag.String("file", "", "analyze a single recording and exit")
	windowsSpec := flag.String("windows", "", "abonent speech windows in seconds, e.g. 1.0-4.0,5.5-8.0")
	splitDir := flag.String("split-dir", "", "also export each channel as a mono WAV into this directory")
	flag.Parse()

	// Set up logger with basic configuration (will be updated after config is loaded)
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})
	logger.SetOutput(os.Stdout)

	rootCtx, rootCancel = context.WithCancel(context.Background())
	defer rootCancel()

	logger.WithField("version", version.Version).Info("Starting dialog analyzer")

	dialogAnalyzer, err := initialize()
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize application")
	}

	if *filePath != "" {
		runOneShot(dialogAnalyzer, *filePath, *windowsSpec, *splitDir)
		return
	}

	if !appConfig.HTTP.Enabled {
		logger.Fatal("HTTP server disabled and no -file given, nothing to do")
	}

	httpServer = http_server.NewServer(logger, appConfig.HTTP, dialogAnalyzer, publisherOrNil())
	httpServer.Start(rootCtx)
	logger.Info("HTTP server started")

	// Graceful shutdown handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigChan
	logger.WithField("signal", sig.String()).Info("Received shutdown signal, cleaning up...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	rootCancel()

	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("Error shutting down HTTP server")
		} else {
			logger.Info("HTTP server shut down successfully")
		}
	}

	if amqpClient != nil {
		amqpClient.Disconnect()
		logger.Info("AMQP client disconnected")
	}

	logger.Info("Application shut down gracefully")
}

// initialize loads configuration and initializes all components
func initialize() (*analyzer.Analyzer, error) {
	var err error

	appConfig, err = config.Load(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := appConfig.ApplyLogging(logger); err != nil {
		return nil, fmt.Errorf("failed to apply logging configuration: %w", err)
	}
	logger.WithField("level", logger.GetLevel().String()).Info("Log level set")

	metrics.Init(logger)
	logger.Info("Metrics system initialized")

	dialogAnalyzer := analyzer.New(logger, analyzer.Config{
		ExpectedSampleRate:      appConfig.Analyzer.ExpectedSampleRate,
		AmplitudeThreshold:      appConfig.Analyzer.AmplitudeThreshold,
		GoodReactionThresholdMS: appConfig.Analyzer.GoodReactionThresholdMS,
	})
	logger.WithFields(logrus.Fields{
		"expected_sample_rate":       appConfig.Analyzer.ExpectedSampleRate,
		"amplitude_threshold":        appConfig.Analyzer.AmplitudeThreshold,
		"good_reaction_threshold_ms": appConfig.Analyzer.GoodReactionThresholdMS,
	}).Info("Dialog analyzer initialized")

	if appConfig.Messaging.AMQPUrl != "" && appConfig.Messaging.AMQPQueueName != "" {
		logger.Info("Initializing AMQP client")
		client := messaging.NewAMQPClient(logger, messaging.AMQPConfig{
			URL:        appConfig.Messaging.AMQPUrl,
			QueueName:  appConfig.Messaging.AMQPQueueName,
			RoutingKey: appConfig.Messaging.AMQPQueueName,
			Durable:    true,
		})
		if err := client.Connect(); err != nil {
			logger.WithError(err).Warn("Failed to connect to AMQP server, continuing without AMQP")
		} else {
			amqpClient = client
			logger.Info("AMQP client initialized successfully")
		}
	} else {
		logger.Debug("AMQP not configured, statistics will not be sent to message queue")
	}

	return dialogAnalyzer, nil
}

func publisherOrNil() messaging.StatisticsPublisher {
	if amqpClient == nil {
		return nil
	}
	return amqpClient
}

// runOneShot analyzes one recording from the command line and prints the
// statistics as JSON to stdout.
func runOneShot(a *analyzer.Analyzer, path, windowsSpec, splitDir string) {
	windows, err := parseWindows(windowsSpec)
	if err != nil {
		logger.WithError(err).Fatal("Invalid -windows value")
	}

	stats, err := a.AnalyzeMultipleTurns(path, windows)
	if err != nil {
		logger.WithError(err).WithField("file", path).Fatal("Dialog analysis failed")
	}

	if splitDir != "" {
		if err := exportChannels(a, path, splitDir); err != nil {
			logger.WithError(err).WithField("dir", splitDir).Fatal("Channel export failed")
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(stats); err != nil {
		logger.WithError(err).Fatal("Failed to encode statistics")
	}
}

// exportChannels writes the abonent and agent channels as separate mono WAVs.
func exportChannels(a *analyzer.Analyzer, path, dir string) error {
	abonent, agent, sampleRate, err := a.LoadAudio(path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	for name, samples := range map[string][]float64{
		"abonent.wav": abonent,
		"agent.wav":   agent,
	} {
		if err := writeMonoWAV(filepath.Join(dir, name), samples, sampleRate); err != nil {
			return err
		}
		logger.WithField("file", filepath.Join(dir, name)).Info("Exported channel")
	}
	return nil
}

func writeMonoWAV(path string, samples []float64, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	writer, err := media.NewWAVWriter(f, sampleRate, 1)
	if err != nil {
		return err
	}

	pcm := make([]int16, len(samples))
	for i, s := range samples {
		v := s * 32767
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		pcm[i] = int16(v)
	}

	if err := writer.WriteSamples(pcm); err != nil {
		return err
	}
	return writer.Finalize()
}

// parseWindows parses a comma-separated list of start-end second pairs,
// e.g. "1.0-4.0,5.5-8.0".
func parseWindows(spec string) ([]analyzer.TimeWindow, error) {
	if strings.TrimSpace(spec) == "" {
		return nil, fmt.Errorf("no windows given, expected e.g. 1.0-4.0,5.5-8.0")
	}

	var windows []analyzer.TimeWindow
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		bounds := strings.SplitN(part, "-", 2)
		if len(bounds) != 2 {
			return nil, fmt.Errorf("invalid window %q, expected start-end", part)
		}

		start, err := strconv.ParseFloat(strings.TrimSpace(bounds[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid window start %q: %w", bounds[0], err)
		}
		end, err := strconv.ParseFloat(strings.TrimSpace(bounds[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid window end %q: %w", bounds[1], err)
		}

		windows = append(windows, analyzer.TimeWindow{Start: start, End: end})
	}
	return windows, nil
}
