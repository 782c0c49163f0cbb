package main

import (
	"context"
	"net/http"

	"github.com/driverpool/mono-repo/backend/services/dispatch-service/internal/app"
	"github.com/driverpool/mono-repo/backend/services/dispatch-service/internal/config"
	"github.com/driverpool/mono-repo/backend/services/dispatch-service/internal/constants"
	"github.com/driverpool/mono-repo/backend/services/dispatch-service/internal/controllers"
	"github.com/driverpool/mono-repo/backend/services/dispatch-service/internal/notify"
	"github.com/driverpool/mono-repo/backend/services/dispatch-service/internal/ratelimit"
	"github.com/driverpool/mono-repo/backend/services/dispatch-service/internal/services"
	"github.com/driverpool/mono-repo/backend/shared/go-repositories"
	"github.com/driverpool/mono-repo/backend/shared/go-utils"
	cron "github.com/robfig/cron/v3"
	"github.com/rs/cors"
	"github.com/sendgrid/sendgrid-go"
	twilio "github.com/twilio/twilio-go"
)

func main() {
	utils.InitLogger(config.AppName)
	cfg := config.LoadConfig()
	defer cfg.Close()

	application, err := app.NewApp(cfg)
	if err != nil {
		utils.Logger.Fatal("Failed to initialize dispatch-service:", err)
	}
	defer application.Close()

	clock := utils.SystemClock()

	jobRepo := repositories.NewJobRepository(application.DB)
	driverRepo := repositories.NewDriverRepository(application.DB)
	inviteRepo := repositories.NewInviteRepository(application.DB)
	assignmentRepo := repositories.NewAssignmentRepository(application.DB)
	auditRepo := repositories.NewAcceptanceAuditRepository(application.DB)
	noShowRepo := repositories.NewNoShowRepository(application.DB)
	deliveryRepo := repositories.NewDeliveryLogRepository(application.DB)
	adminLogRepo := repositories.NewAdminAuditLogRepository(application.DB)

	if cfg.LDFlag_SeedDbWithTestData {
		if n, err := app.SeedDemoDrivers(context.Background(), driverRepo); err != nil {
			utils.Logger.WithError(err).Fatal("Failed to seed test data")
		} else {
			utils.Logger.Infof("Seeded %d demo drivers", n)
		}
	}

	twClient := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.TwilioAccountSID,
		Password: cfg.TwilioAuthToken,
	})
	sgClient := sendgrid.NewSendClient(cfg.SendGridAPIKey)

	notifier := notify.NewSendGridNotifier(sgClient, notify.SendGridConfig{
		FromEmail:      cfg.SenderEmail,
		VerifiedDomain: cfg.VerifiedSenderDomain,
		Sandbox:        cfg.LDFlag_EmailSandbox,
	})
	alerter := notify.NewTwilioAlerter(twClient.Api, cfg.TwilioFromPhone, cfg.OperatorPhone, cfg.LDFlag_SMSOperatorAlerts)

	// A shared bucket paces sends across replicas; without redis each
	// process keeps its own fixed gap.
	var pacer ratelimit.Pacer = ratelimit.NewFixedDelayPacer(cfg.SendDelay)
	if application.Redis != nil {
		bucket := ratelimit.NewTokenBucket(application.Redis, constants.DefaultSendBurst, cfg.SendRatePerSec, constants.SendBucketTTL)
		pacer = ratelimit.NewBucketPacer(bucket, constants.SendBucketKey, constants.SendBucketPollInterval)
		utils.Logger.Infof("Pacing sends with redis token bucket at %.2f/s", cfg.SendRatePerSec)
	}

	jobService := services.NewJobService(jobRepo, adminLogRepo, clock)
	driverService := services.NewDriverService(driverRepo, adminLogRepo)
	issuer := services.NewInviteIssuer(inviteRepo, clock, cfg.AppUrl)
	dispatcher := services.NewBroadcastDispatcher(driverRepo, inviteRepo, deliveryRepo, issuer, notifier, alerter, pacer)
	gate := services.NewAdminGate(jobRepo, driverRepo, inviteRepo, adminLogRepo, dispatcher, clock)
	manager := services.NewAssignmentManager(
		jobRepo,
		driverRepo,
		inviteRepo,
		assignmentRepo,
		auditRepo,
		noShowRepo,
		deliveryRepo,
		adminLogRepo,
		notifier,
	)
	resolver := services.NewResponseResolver(jobRepo, inviteRepo, assignmentRepo, manager, clock)
	noShowService := services.NewNoShowService(jobRepo, assignmentRepo, noShowRepo, adminLogRepo, clock)
	sweepService := services.NewInviteSweepService(inviteRepo, clock)

	router := controllers.NewRouter(controllers.Controllers{
		Health:      controllers.NewHealthController(application),
		Jobs:        controllers.NewJobsController(jobService),
		Invites:     controllers.NewInvitesController(resolver),
		AdminJobs:   controllers.NewAdminJobsController(jobService, gate, manager),
		Assignments: controllers.NewAdminAssignmentsController(manager, noShowService),
		Drivers:     controllers.NewAdminDriversController(driverService),
	}, cfg.RSAPublicKey)

	c := cron.New()
	if cfg.LDFlag_InviteSweepEnabled {
		_, sweepErr := c.AddFunc(constants.InviteSweepSchedule, func() {
			if _, _, e := sweepService.Run(context.Background()); e != nil {
				utils.Logger.WithError(e).Error("Invite expiry sweep failed")
			}
		})
		if sweepErr != nil {
			utils.Logger.WithError(sweepErr).Fatal("Failed to schedule invite expiry sweep cron")
		}
	} else {
		utils.Logger.Warn("Invite expiry sweep disabled by flag")
	}
	c.Start()
	defer c.Stop()

	allowedOrigins := []string{cfg.AppUrl}
	if !cfg.LDFlag_CORSHighSecurity {
		allowedOrigins = append(allowedOrigins, utils.CORSLowSecurityAllowedOriginLocalhost)
	}

	co := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	utils.Logger.Infof("Starting %s on port: %s", cfg.AppName, cfg.AppPort)
	if err := http.ListenAndServe(":"+cfg.AppPort, co.Handler(router)); err != nil {
		utils.Logger.Fatal("dispatch-service failed to start:", err)
	}
}
