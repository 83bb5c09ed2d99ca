package history

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	ErrUnknownDriver = errors.New("unknown history driver")
	ErrHandNotFound  = errors.New("hand not found")
)

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Store wraps the GORM connection holding hand history.
type Store struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// Open connects to the history database and migrates its tables.
func Open(driver, dsn string, logger zerolog.Logger) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	case DriverMySQL:
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("invalid mysql dsn: %w", err)
		}
		cfg.ParseTime = true
		dialector = gormmysql.New(gormmysql.Config{DSNConfig: cfg})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	level := gormlogger.Silent
	if logger.GetLevel() <= zerolog.DebugLevel {
		level = gormlogger.Info
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(level),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to history database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if driver == DriverSQLite {
		// every connection to :memory: is a separate database
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.AutoMigrate(&HandRecord{}, &ActionRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate history tables: %w", err)
	}

	logger = logger.With().Str("component", "history").Logger()
	logger.Info().Str("driver", driver).Msg("history database ready")
	return &Store{db: db, logger: logger}, nil
}

// Hands lists the most recent hands of a room, newest first, without actions.
func (s *Store) Hands(roomID string, limit int) ([]HandRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var hands []HandRecord
	err := s.db.Where("room_id = ?", roomID).
		Order("hand_number DESC").
		Limit(limit).
		Find(&hands).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list hands: %w", err)
	}
	return hands, nil
}

// Hand loads one hand with its actions in order.
func (s *Store) Hand(id int64) (*HandRecord, error) {
	var hand HandRecord
	err := s.db.Preload("Actions", func(db *gorm.DB) *gorm.DB {
		return db.Order("sequence_number ASC")
	}).First(&hand, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrHandNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load hand %d: %w", id, err)
	}
	return &hand, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
