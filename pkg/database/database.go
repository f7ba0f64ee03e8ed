package database

import (
	"science-chat-go/internal/model"
	"science-chat-go/pkg/log"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var DB *gorm.DB

// Init 根据配置的驱动初始化数据库连接，并迁移对话相关的表结构。
// TranslateError 开启后，两种驱动的唯一键冲突都会被翻译为 gorm.ErrDuplicatedKey。
func Init(driver, dsn string) {
	var dialector gorm.Dialector
	switch driver {
	case "mysql":
		dialector = mysql.Open(dsn)
	case "sqlite", "":
		dialector = sqlite.Open(dsn)
	default:
		log.Fatalf("不支持的数据库驱动: %s", driver)
		return
	}

	var err error
	DB, err = gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		log.Fatal("failed to connect database", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		log.Fatal("failed to get sql.DB", err)
	}

	if driver == "mysql" {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	} else {
		// SQLite 写并发有限，收紧连接池避免 SQLITE_BUSY
		sqlDB.SetMaxOpenConns(1)
	}

	if err := DB.AutoMigrate(&model.Thread{}, &model.Message{}); err != nil {
		log.Fatal("failed to migrate database schema", err)
	}

	log.Infof("数据库连接成功 (driver=%s)", driver)
}
