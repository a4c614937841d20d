package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"intechlab/audit"
	"intechlab/config"
	"intechlab/events"
	"intechlab/handlers"
	"intechlab/identity"
	"intechlab/middleware"
	"intechlab/models"
	"intechlab/notify"
	"intechlab/repository"
	"intechlab/services"
	"intechlab/storage"
	"intechlab/workflow"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuracion invalida: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		cases    repository.Cases
		staff    repository.Staff
		files    storage.ObjectStore
		accounts identity.Accounts
		recorder audit.Recorder = &audit.Memory{}
		s3Client *s3.Client
		sqsCli   *sqs.Client
	)

	awsClients := func() (*s3.Client, *sqs.Client) {
		if s3Client == nil {
			s3Client, sqsCli, err = config.NewAWSClients(ctx)
			if err != nil {
				log.Fatalf("AWS: %v", err)
			}
		}
		return s3Client, sqsCli
	}

	// Casos, perfiles y archivos.
	switch cfg.StoreDriver {
	case config.DriverMemory:
		log.Println("STORE_DRIVER=memory: casos de demostracion en memoria")
		cases = repository.NewMemoryCases(repository.DemoCases(time.Now())...)
		staff = repository.NewMemoryStaff()
		files = storage.NewMemory()
	default:
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		client, database, bucket, err := config.InitializeMongoDBClient(connectCtx, cfg.MongoURI, cfg.MongoDatabase, cfg.GridFSBucket)
		cancel()
		if err != nil {
			// Sin base de datos el portal arranca y responde 503.
			log.Printf("MongoDB no disponible: %v", err)
		} else {
			defer client.Disconnect(context.Background())
		}
		cases = repository.NewMongoCases(database, cfg.PollInterval)
		staff = repository.NewMongoStaff(database)
		files = storage.NewGridFS(bucket)
	}
	if cfg.FileBackend == config.FilesS3 {
		client, _ := awsClients()
		files = storage.NewS3(client, cfg.S3Bucket)
	}

	// Cuentas y auditoria en Postgres.
	if cfg.PostgresDSN != "" {
		db, err := config.InitializeDatabase(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatal(err)
		}
		defer db.Close()
		store := identity.NewStore(db)
		if err := store.CreateTable(ctx); err != nil {
			log.Fatal(err)
		}
		accounts = store

		gdb, err := audit.Open(cfg.PostgresDSN)
		if err != nil {
			log.Fatal(err)
		}
		trail := audit.NewGorm(gdb)
		if err := trail.Migrate(); err != nil {
			log.Fatalf("No se pudo migrar la tabla de auditoria: %v", err)
		}
		if sqlDB, err := gdb.DB(); err == nil {
			defer sqlDB.Close()
		}
		recorder = trail
	} else {
		log.Println("POSTGRES_DSN vacio: cuentas en memoria")
		mem := identity.NewMemory()
		if cfg.DevAdminPassword != "" {
			seedAdmin(ctx, mem, cfg.DevAdminEmail, cfg.DevAdminPassword)
		}
		accounts = mem
	}

	// Eventos del ciclo de vida.
	var publisher events.Publisher = events.Nop{}
	switch cfg.EventsDriver {
	case config.EventsKafka:
		publisher = events.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic)
	case config.EventsSQS:
		_, client := awsClients()
		queueURL, err := events.QueueURL(ctx, client, cfg.SQSQueue)
		if err != nil {
			log.Fatal(err)
		}
		publisher = events.NewSQS(client, queueURL)
	}
	defer publisher.Close()

	var notifier notify.Notifier = notify.Nop{}
	if cfg.SMTPEnabled() {
		notifier = notify.NewMailer(notify.SMTPConfig{
			Server:   cfg.SMTPServer,
			Port:     cfg.SMTPPort,
			Email:    cfg.SMTPEmail,
			Password: cfg.SMTPPassword,
		})
	}

	caseService := services.NewCaseService(services.CaseDeps{
		Cases:     cases,
		Store:     files,
		Guard:     workflow.New(cfg.AdminMayComplete),
		PublicURL: cfg.PublicURL,
		Audit:     recorder,
		Events:    publisher,
		Notifier:  notifier,
	})
	staffService := services.NewStaffService(accounts, staff)

	r := handlers.Router(handlers.Deps{
		Cases:    caseService,
		Staff:    staffService,
		Accounts: accounts,
		Tokens:   identity.NewTokens(cfg.JWTSecret, cfg.TokenTTL),
		Files:    files,
	})
	handler := middleware.CORSMiddleware(cfg.CORSOrigins)(middleware.LoggingMiddleware(os.Stdout)(r))

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error al detener el servidor: %v", err)
		}
	}()

	log.Printf("Servidor escuchando en %s...", cfg.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}

func seedAdmin(ctx context.Context, accounts *identity.Memory, email, password string) {
	user, err := accounts.CreateUser(ctx, email, password, "Administrador")
	if err != nil {
		log.Printf("No se pudo crear el administrador de desarrollo: %v", err)
		return
	}
	if err := accounts.SetRole(ctx, user.UID, models.RoleAdmin); err != nil {
		log.Printf("No se pudo asignar el rol admin: %v", err)
		return
	}
	log.Printf("Administrador de desarrollo %s creado", email)
}
