// Package config lee la configuracion del entorno y construye los clientes
// de Postgres, MongoDB/GridFS y AWS. Quien los construye los cierra.
package config

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Drivers de almacenamiento y de eventos.
const (
	DriverMongo  = "mongo"
	DriverMemory = "memory"

	FilesGridFS = "gridfs"
	FilesS3     = "s3"

	EventsNone  = "none"
	EventsKafka = "kafka"
	EventsSQS   = "sqs"
)

type Config struct {
	Addr        string
	PublicURL   string
	CORSOrigins []string

	PostgresDSN string

	StoreDriver   string
	MongoURI      string
	MongoDatabase string
	GridFSBucket  string
	PollInterval  time.Duration

	FileBackend string
	S3Bucket    string

	JWTSecret string
	TokenTTL  time.Duration

	EventsDriver string
	KafkaBrokers []string
	KafkaTopic   string
	SQSQueue     string

	SMTPServer   string
	SMTPPort     int
	SMTPEmail    string
	SMTPPassword string

	// Cuenta de administrador para cuando no hay Postgres (solo desarrollo).
	DevAdminEmail    string
	DevAdminPassword string

	// AdminMayComplete deja que un administrador marque como listo un caso ajeno.
	AdminMayComplete bool
}

// Load lee .env.local y .env si existen y luego las variables de entorno.
// Las variables ya definidas en el entorno no se sobrescriben.
func Load() (Config, error) {
	for _, file := range []string{".env.local", ".env"} {
		if err := godotenv.Load(file); err == nil {
			log.Printf("Configuracion cargada de %s", file)
		}
	}

	cfg := Config{
		Addr:          env("ADDR", ":8080"),
		PublicURL:     env("PUBLIC_URL", "http://localhost:8080"),
		CORSOrigins:   list(env("CORS_ORIGINS", "*")),
		PostgresDSN:   os.Getenv("POSTGRES_DSN"),
		StoreDriver:   strings.ToLower(env("STORE_DRIVER", DriverMongo)),
		MongoURI:      env("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: env("MONGO_DATABASE", "intechlab"),
		GridFSBucket:  env("GRIDFS_BUCKET", "evidencias"),
		FileBackend:   strings.ToLower(env("FILE_BACKEND", FilesGridFS)),
		S3Bucket:      os.Getenv("S3_BUCKET"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		EventsDriver:  strings.ToLower(env("EVENTS_DRIVER", EventsNone)),
		KafkaBrokers:  list(env("KAFKA_BROKERS", "kafka:9092")),
		KafkaTopic:    env("KAFKA_TOPIC", "case-events"),
		SQSQueue:      env("SQS_QUEUE", "case-events"),
		SMTPServer:    os.Getenv("SMTP_SERVER"),
		SMTPEmail:     os.Getenv("SMTP_EMAIL"),
		SMTPPassword:  os.Getenv("SMTP_PASSWORD"),

		DevAdminEmail:    env("DEV_ADMIN_EMAIL", "admin@intechlab.com"),
		DevAdminPassword: os.Getenv("DEV_ADMIN_PASSWORD"),
	}

	var err error
	if cfg.PollInterval, err = duration("POLL_INTERVAL", 2*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.TokenTTL, err = duration("TOKEN_TTL", 12*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.AdminMayComplete, err = boolean("WORKFLOW_ADMIN_COMPLETION", true); err != nil {
		return Config{}, err
	}
	if raw := os.Getenv("SMTP_PORT"); raw != "" {
		if cfg.SMTPPort, err = strconv.Atoi(raw); err != nil {
			return Config{}, fmt.Errorf("SMTP_PORT invalido %q: %w", raw, err)
		}
	} else {
		cfg.SMTPPort = 587
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET es obligatorio")
	}
	switch cfg.StoreDriver {
	case DriverMongo, DriverMemory:
	default:
		return Config{}, fmt.Errorf("STORE_DRIVER desconocido %q", cfg.StoreDriver)
	}
	switch cfg.FileBackend {
	case FilesGridFS:
	case FilesS3:
		if cfg.S3Bucket == "" {
			return Config{}, fmt.Errorf("S3_BUCKET es obligatorio con FILE_BACKEND=s3")
		}
	default:
		return Config{}, fmt.Errorf("FILE_BACKEND desconocido %q", cfg.FileBackend)
	}
	switch cfg.EventsDriver {
	case EventsNone, EventsKafka, EventsSQS:
	default:
		return Config{}, fmt.Errorf("EVENTS_DRIVER desconocido %q", cfg.EventsDriver)
	}
	return cfg, nil
}

// SMTPEnabled indica si hay servidor de correo para los comprobantes.
func (c Config) SMTPEnabled() bool {
	return c.SMTPServer != "" && c.SMTPEmail != ""
}

func env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func list(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func duration(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s invalido %q: %w", key, raw, err)
	}
	return d, nil
}

func boolean(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s invalido %q: %w", key, raw, err)
	}
	return b, nil
}

// InitializeDatabase configura la conexión a PostgreSQL.
func InitializeDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("error al conectar a la base de datos: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error al conectar a la base de datos: %w", err)
	}
	return db, nil
}

// InitializeMongoDBClient inicializa el cliente de MongoDB y el bucket de GridFS.
func InitializeMongoDBClient(ctx context.Context, uri, database, bucketName string) (*mongo.Client, *mongo.Database, *gridfs.Bucket, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("error al conectar a MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, nil, nil, fmt.Errorf("error al conectar a MongoDB: %w", err)
	}

	db := client.Database(database)
	bucket, err := gridfs.NewBucket(db, options.GridFSBucket().SetName(bucketName))
	if err != nil {
		client.Disconnect(context.Background())
		return nil, nil, nil, fmt.Errorf("error al crear el bucket de GridFS: %w", err)
	}
	return client, db, bucket, nil
}

// NewAWSClients arma S3 y SQS con la configuracion por defecto del SDK.
// AWS_ENDPOINT_URL permite apuntar a un emulador local.
func NewAWSClients(ctx context.Context) (*s3.Client, *sqs.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to load AWS SDK config: %w", err)
	}

	s3Client := s3.New(s3.Options{
		Region:       cfg.Region,
		Credentials:  cfg.Credentials,
		HTTPClient:   cfg.HTTPClient,
		BaseEndpoint: cfg.BaseEndpoint,
		UsePathStyle: true,
	})
	sqsClient := sqs.New(sqs.Options{
		Region:       cfg.Region,
		Credentials:  cfg.Credentials,
		HTTPClient:   cfg.HTTPClient,
		BaseEndpoint: cfg.BaseEndpoint,
	})
	return s3Client, sqsClient, nil
}
