package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/stake-plus/bountyboard/src/actions"
	"github.com/stake-plus/bountyboard/src/bounty"
	shareddata "github.com/stake-plus/bountyboard/src/data"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading environment variables directly")
	}

	var (
		db    *gorm.DB
		store bounty.Store
	)
	if dsn := shareddata.GetMySQLDSN(); dsn != "" {
		var err error
		db, err = shareddata.ConnectMySQL(dsn)
		if err != nil {
			log.Fatalf("db: %v", err)
		}
		if err := shareddata.Migrate(db); err != nil {
			log.Fatalf("db: migrate: %v", err)
		}
		store = shareddata.NewStore(db)
	} else {
		log.Printf("db: MYSQL_DSN not set, state is kept in memory only")
		store = bounty.NewMemoryStore()
	}

	engine := bounty.NewEngine(store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager, err := actions.StartAll(ctx, db, engine)
	if err != nil {
		log.Fatalf("actions start: %v", err)
	}

	// Wait for termination
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer stopCancel()
	manager.Stop(stopCtx)
}
