package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/saleflow/backend/internal/config"
	"github.com/saleflow/backend/internal/logger"
	"github.com/saleflow/backend/internal/models"
)

// Connect opens the postgres database. Driver errors are translated so the
// store can tell duplicate keys apart.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	database, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Error),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	logger.Info("Database connected successfully", map[string]interface{}{
		"host": cfg.DBHost,
		"name": cfg.DBName,
	})
	return database, nil
}

// Models lists every table the application owns, in migration order.
func Models() []interface{} {
	return []interface{}{
		&models.Department{},
		&models.User{},
		&models.Appointment{},
		&models.Consultation{},
		&models.Revenue{},
		&models.ProjectProfile{},
		&models.MonthlyTarget{},
		&models.Message{},
		&models.ActivityLog{},
	}
}

// AutoMigrate runs database migrations
func AutoMigrate(database *gorm.DB) error {
	for _, m := range Models() {
		if err := database.AutoMigrate(m); err != nil {
			return fmt.Errorf("migrate %T: %w", m, err)
		}
		logger.Debug("Table migrated", map[string]interface{}{"model": fmt.Sprintf("%T", m)})
	}

	logger.Info("All database migrations completed successfully", nil)
	return nil
}

// Close releases the pool behind database.
func Close(database *gorm.DB) error {
	sqlDB, err := database.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ConnectMongo opens and pings the activity log cluster.
func ConnectMongo(cfg *config.Config) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.Info("MongoDB connected successfully", map[string]interface{}{"database": cfg.MongoDatabase})
	return client, nil
}
