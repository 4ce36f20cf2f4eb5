package main

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/xo/dburl"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"stormStakes/api"
	"stormStakes/config"
	"stormStakes/models"
	"stormStakes/scheduler"
	"stormStakes/services/cashoutService"
	"stormStakes/services/notifyService"
	"stormStakes/services/realtimeService"
	"stormStakes/services/weatherService"
)

func main() {
	log := logrus.New()
	log.SetLevel(logrus.InfoLevel)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	db, err := openDatabase(cfg)
	if err != nil {
		log.Fatalf("connecting to database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Wager{},
		&models.WagerLeg{},
		&models.AutoCashoutRule{},
		&models.PartialCashout{},
		&models.ErrorLog{},
	)
	if err != nil {
		log.Fatalf("migrating database: %v", err)
	}

	weatherClient := weatherService.NewClient(&cfg.Weather, log)
	engine := cashoutService.NewEngine(weatherClient, log)

	notifier, err := notifyService.NewDispatcher(&cfg.Notify, log)
	if err != nil {
		log.Fatalf("creating notifier: %v", err)
	}

	hub := realtimeService.NewHub(log)
	orch := cashoutService.NewOrchestrator(db, weatherClient, notifier, hub, log)
	hub.OnWeatherUpdate(orch.TriggerNow)

	cronService, err := scheduler.SetupCron(orch, cfg.Cashout.PollSeconds, log)
	if err != nil {
		log.Fatalf("starting scheduler: %v", err)
	}
	defer func() {
		cronService.Stop()
		orch.Stop()
		hub.Close()
	}()

	gin.SetMode(cfg.Server.Mode)
	r := gin.Default()

	wagerHandler := api.NewWagerHandler(db, log)
	r.GET("/api/wagers", wagerHandler.ListWagers)
	r.POST("/api/wagers", wagerHandler.PlaceWager)

	cashoutHandler := api.NewCashoutHandler(db, log, orch, engine, notifier)
	r.GET("/api/cashouts", cashoutHandler.ListValuations)
	r.GET("/api/cashout/:id", cashoutHandler.GetValuation)
	r.POST("/api/cashout/:id/full", cashoutHandler.CashOutFull)
	r.POST("/api/cashout/:id/partial", cashoutHandler.CashOutPartial)

	ruleHandler := api.NewRuleHandler(db, log)
	r.GET("/api/cashout-rules", ruleHandler.ListRules)
	r.POST("/api/cashout-rules", ruleHandler.CreateRule)
	r.DELETE("/api/cashout-rules/:id", ruleHandler.DeleteRule)

	r.GET("/ws", func(c *gin.Context) {
		hub.ServeWS(c.Writer, c.Request)
	})

	log.Infof("listening on :%d", cfg.Server.Port)
	if err := r.Run(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}

func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	u, err := dburl.Parse(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	dsn := u.DSN
	if !strings.Contains(dsn, "parseTime") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "charset=utf8mb4&parseTime=True&loc=Local"
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	return db, nil
}
