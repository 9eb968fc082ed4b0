/*
 *    Copyright 2023 iFood
 *
 *    Licensed under the Apache License, Version 2.0 (the "License");
 *    you may not use this file except in compliance with the License.
 *    You may obtain a copy of the License at
 *
 *      http://www.apache.org/licenses/LICENSE-2.0
 *
 *    Unless required by applicable law or agreed to in writing, software
 *    distributed under the License is distributed on an "AS IS" BASIS,
 *    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *    See the License for the specific language governing permissions and
 *    limitations under the License.
 */

package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"runtime"
	adaptersin "scan-sentinel/adapters/in"
	adaptersout "scan-sentinel/adapters/out"
	"scan-sentinel/common"
	"scan-sentinel/config"
	"scan-sentinel/domain/entities"
	"scan-sentinel/domain/services/cleanup"
	"scan-sentinel/domain/services/definitions"
	"scan-sentinel/domain/services/orchestrator"
	"scan-sentinel/domain/services/preprocess"
	"scan-sentinel/domain/services/scan"
	"scan-sentinel/domain/services/stages"
	"scan-sentinel/domain/services/status"
	"scan-sentinel/domain/services/workspace"
	sentinelhttp "scan-sentinel/http"
	"scan-sentinel/logging"
	"scan-sentinel/metrics"
	"scan-sentinel/pkg/awsutils"
	"strings"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/spf13/afero"
	"github.com/uber-go/tally/v4"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
	"gopkg.in/DataDog/dd-trace-go.v1/profiler"
)

const (
	mirrorRateLimitKey = "definitions-mirror"
	readinessKey       = "scan-sentinel-readiness"
)

//nolint:cyclop
func Start(ctx context.Context) error {
	appConfig, err := config.LoadConfig()
	if err != nil {
		return err
	}

	// The scan engine and the archive tool are the heavy lifting, each worker runs one of them.
	runtime.GOMAXPROCS(appConfig.Scanner.Workers + 1)

	// Enable Datadog tracer
	tracer.Start()
	defer tracer.Stop()

	// Enable Datadog Profiler
	if err = profiler.Start(); err != nil {
		return err
	}
	defer profiler.Stop()

	logger, err := logging.NewZapLogger(appConfig.Scanner.DebugLog)
	if err != nil {
		return err
	}

	var metricsHandler http.Handler
	var metricsScope tally.Scope
	var metricsClose io.Closer

	if appConfig.HTTPServer.Metrics {
		metricsScope, metricsHandler, metricsClose = metrics.NewPrometheusScope()
		defer metricsClose.Close()
	} else {
		metricsScope, metricsHandler, _ = metrics.NewNoopScope()
	}

	session, err := awsutils.NewSession(awsutils.SessionConfig{
		Region:          appConfig.Aws.Region,
		Endpoint:        appConfig.Aws.Resolver,
		MaxConnsPerHost: appConfig.Aws.MaxConnections,
		MaxRetries:      appConfig.Aws.MaxRetries,
	})

	if err != nil {
		return fmt.Errorf("failed to initialize aws client. Error: %s, Region: %s, Resolver: %s", err, appConfig.Aws.Region, appConfig.Aws.Resolver)
	}

	fs := afero.NewOsFs()
	storage := adaptersout.NewS3Storage(session, nil)
	runner := adaptersout.NewProcessRunner(logger)

	sqsService := &awsutils.SQS{}
	sqsService.Init(session, nil)

	var cache *adaptersout.AWSCache
	if appConfig.Redis.URL != "" {
		cache = adaptersout.NewCache(appConfig.Redis.URL, appConfig.Redis.Password, appConfig.Redis.UseTLS)
	}

	// Invocation stages
	workspaces := workspace.NewManager(fs, appConfig.Workspace.MountPath, logger)
	statusStore := status.NewStore(storage, metricsScope, logger)
	fetcher := preprocess.NewFetcher(fs, storage, logger)
	expander := preprocess.NewArchiveExpander(fs, runner, appConfig.Scanner.ExtractCommand, appConfig.Scanner.MaxBytes, logger)

	updateTool := definitions.NewUpdateTool(fs, runner, appConfig.Scanner.UpdateCommand, appConfig.Scanner.RunAs)
	definitionCache := entities.NewDefinitionCache(appConfig.DefinitionsDir())
	updater := definitions.NewUpdater(updateTool, definitionCache, adaptersout.SystemClock{}, appConfig.Scanner.FreshclamConfig,
		appConfig.Definitions.MirrorURL, appConfig.Definitions.RefreshInterval, metricsScope, logger)

	executor := scan.NewExecutor(runner, appConfig.Scanner.ScanCommand, appConfig.Scanner.MaxBytes, metricsScope, logger)
	scanOrchestrator := orchestrator.NewOrchestrator(statusStore, workspaces, fetcher, expander, updater, executor, metricsScope, logger)

	// Cleanups
	queueCleanup := cleanup.NewQueueCleanup(appConfig.Aws.Queue, sqsService, logger)
	cleanupJobs := []cleanup.Job{&queueCleanup}

	if appConfig.Aws.ResultTopic != "" {
		publishResult := cleanup.NewPublishResult(adaptersout.NewSNSPublisher(session, nil, appConfig.Aws.ResultTopic), logger)
		cleanupJobs = append(cleanupJobs, &publishResult)
	}

	if appConfig.Notification.Slack.Webhook != "" {
		alertCleanup := cleanup.NewAlertCleanup(adaptersout.NewSlackAlerter(appConfig.Notification.Slack.Webhook, appConfig.Notification.Slack.ChannelID), logger)
		cleanupJobs = append(cleanupJobs, &alertCleanup)
	}

	cleanupHandler := cleanup.NewCleanupHandler(cleanupJobs, logger)
	failureHandler := cleanup.NewFailureHandler(cleanupHandler, logger)

	// Channels
	inputChannel := make(chan *entities.ScanRequest)
	cleanupChannel := make(chan *stages.Cleanup[entities.ScanRequest])

	// Stages initialization
	scanStage := stages.NewStage[entities.ScanRequest, entities.ScanOutcome](orchestrator.NewHandler(scanOrchestrator, logger),
		inputChannel, cleanupChannel, appConfig.Scanner.Workers, logger)
	cleanupStage := stages.NewStage[entities.ScanOutcome, entities.Empty](cleanupHandler, scanStage.Output(), nil, appConfig.Scanner.Workers, logger)
	failureStage := stages.NewStage[stages.Cleanup[entities.ScanRequest], entities.Empty](failureHandler, cleanupChannel, nil, 1, logger)

	scanStage.Process(ctx)
	cleanupStage.Process(ctx)
	failureStage.Process(ctx)

	// Definitions mirror
	if appConfig.Definitions.MirrorBucket != "" {
		rateLimiter := common.NewRateLimiter(appConfig.Redis.URL, appConfig.Redis.Password, appConfig.Redis.UseTLS, common.RateLimitConfig{
			Hour: appConfig.Definitions.MirrorHourlyLimit,
			Key:  mirrorRateLimitKey,
		})
		mirrorTool := definitions.NewUpdateTool(fs, runner, appConfig.Scanner.UpdateCommand, appConfig.Scanner.RunAs)
		mirrorSync := definitions.NewMirrorSync(fs, storage, mirrorTool, cache, rateLimiter, appConfig.Definitions.MirrorBucket,
			appConfig.Definitions.MirrorPrefix, appConfig.Definitions.MirrorScratchDir, metricsScope, logger)

		go mirrorSync.Run(ctx, appConfig.Definitions.MirrorSyncInterval)
	}

	// Controllers
	queueController := adaptersin.NewQueueController(appConfig.Aws.Queue, inputChannel, sqsService, metricsScope, logger)
	go queueController.AsyncScan(ctx)

	scanController := adaptersin.NewScanController(cleanup.NewSyncScanner(scanOrchestrator, cleanupHandler), logger)

	fiberConfig := sentinelhttp.FiberConfig{
		MaxRequestSize:    appConfig.HTTPServer.MaxRequestSize,
		AuthorizationKeys: appConfig.HTTPServer.AuthorizationKeys,
		Profiler:          appConfig.HTTPServer.Profiler,
		Metrics:           adaptor.HTTPHandler(metricsHandler),
		RequestLogger: func(c *fiber.Ctx) error {
			// Prevent generating lots of requests because of healthcheck
			if !strings.HasPrefix(c.Path(), "/healthcheck/") && !strings.HasPrefix(c.Path(), "/metrics") {
				logger.Infow("Received webapi request", "requester", c.Locals("requester"), "ip", c.IP(), "method", c.Method(),
					"url", c.BaseURL(), "path", c.Path())
			}
			return c.Next()
		},
		Readiness: func(c *fiber.Ctx) error {
			if appConfig.Aws.Queue != "" {
				req, err := http.NewRequestWithContext(c.Context(), "GET", appConfig.Aws.Queue, http.NoBody)
				if err != nil {
					logger.Errorw("Failed to create SQS request in readiness.", "error", err)
					return c.Status(fiber.StatusServiceUnavailable).SendString(fmt.Sprintf("Failed to create request %s", err))
				}

				resp, err := http.DefaultClient.Do(req)
				if err != nil {
					logger.Errorw("Failed to connect to the SQS in readiness.", "error", err)
					return c.Status(fiber.StatusServiceUnavailable).SendString(fmt.Sprintf("SQS not connectable. %s", err))
				}
				defer resp.Body.Close()
			}

			if cache != nil {
				if err := cache.Set(readinessKey, time.Now().Unix(), time.Minute); err != nil {
					logger.Errorw("Failed to connect to the cache.", "error", err)
					return c.Status(fiber.StatusServiceUnavailable).SendString(fmt.Sprintf("Elasticache not connectable. %s", err))
				}
			}

			if err := workspaces.EnsureDir(appConfig.Workspace.MountPath); err != nil {
				logger.Errorw("Workspace mount is not writable.", "error", err)
				return c.Status(fiber.StatusServiceUnavailable).SendString(fmt.Sprintf("Workspace not available. %s", err))
			}

			return c.SendStatus(fiber.StatusOK)
		},
		Liveness: func(c *fiber.Ctx) error {
			return c.SendStatus(fiber.StatusOK)
		},
		Handlers: []sentinelhttp.Handler{
			{HTTPMethod: "POST", Path: "/objects", HandlerFunc: scanController.ScanObject},
		},
	}

	app, err := sentinelhttp.CreateFiberApp(fiberConfig, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize fiber framework. Error: %s", err)
	}

	go func() {
		<-ctx.Done()
		logger.Infow("Shutting down http server")
		if err := app.Shutdown(); err != nil {
			logger.Errorw("failed to shutdown http server", "error", err)
		}
	}()

	return app.Listen(fmt.Sprintf(":%d", appConfig.HTTPServer.Port))
}
