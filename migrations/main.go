// migrations はゲームのテーブルを作成・更新する単独のプログラム。
// サーバーも起動時にAutoMigrateするが、デプロイ前に先に流したいときに使う
package main

import (
	"flag"

	condordb "condorserver/condor/database"
	"condorserver/database"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config.json", "設定ファイル")
	flag.Parse()

	_ = godotenv.Load()

	// Zapのロガーを設定
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	config, err := database.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal("設定ファイルの読み込みに失敗しました", zap.Error(err))
	}
	db, err := database.InitPostgreSQL(config, logger)
	if err != nil {
		logger.Fatal("PostgreSQLの初期化に失敗しました", zap.Error(err))
	}

	if err := condordb.AutoMigrate(db); err != nil {
		logger.Fatal("マイグレーションに失敗しました", zap.Error(err))
	}
	logger.Info("テーブルの作成・更新が完了しました")
}
