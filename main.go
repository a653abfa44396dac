package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"condorserver/condor"            //ゲームエンジン
	"condorserver/condor/broadcast"  //RedisへのイベントPublish
	"condorserver/condor/connection" //WebSocketの配信
	condordb "condorserver/condor/database"
	"condorserver/database"    //PostgreSQLとRedisの初期化
	"condorserver/middlewares" //JWTの検証
	"condorserver/models"      //モデル定義
	"condorserver/screens"     //HTTPリクエストの処理
	"condorserver/utils"       //ロガーの初期化とCronジョブ(フェーズ進行と定期クリーンナップ)

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

func main() {
	configPath := flag.String("config", "config.json", "設定ファイル")
	dev := flag.Bool("dev", false, "メモリ上のリポジトリと組み込みRedisで起動する")
	sqlitePath := flag.String("sqlite", "", "PostgreSQLの代わりに使うSQLiteファイル")
	tokenFor := flag.Uint("token", 0, "開発用: 指定したユーザーIDのトークンを発行して終了する")
	flag.Parse()

	// .envがあれば環境変数として読み込む
	_ = godotenv.Load()

	logger, err := utils.InitLogger(*dev) // ロガーの初期化
	if err != nil {
		panic(err) // 失敗した場合はプログラム停止
	}
	defer logger.Sync() // ロガーのクリーンアップ

	config, err := database.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal("設定ファイルの読み込みに失敗しました", zap.Error(err))
	}
	if config.JWTSecret == "" {
		logger.Fatal("JWT_SECRET is not set")
	}
	secret := []byte(config.JWTSecret)

	if *tokenFor > 0 {
		token, err := middlewares.GenerateToken(secret, *tokenFor, fmt.Sprintf("player%d", *tokenFor), 24*time.Hour)
		if err != nil {
			logger.Fatal("Failed to generate token", zap.Error(err))
		}
		fmt.Println(token)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := openRepository(config, *dev, *sqlitePath, logger)
	if err != nil {
		logger.Fatal("リポジトリの初期化に失敗しました", zap.Error(err))
	}

	var rdb *redis.Client
	if *dev {
		// 開発時は組み込みのRedisを使う
		mr, err := miniredis.Run()
		if err != nil {
			logger.Fatal("Failed to start embedded Redis", zap.Error(err))
		}
		defer mr.Close()
		config.RedisAddr = mr.Addr()
	}
	rdb, err = database.InitRedis(config, logger)
	if err != nil {
		logger.Fatal("Failed to initialize Redis", zap.Error(err))
	}
	defer rdb.Close()

	rules := condor.RulesFromConfig(config)
	engine := condor.NewEngine(repo, broadcast.NewRedisPublisher(rdb, logger), logger, rules)

	hub := connection.NewHub(logger)
	go func() {
		if err := hub.Run(ctx, rdb); err != nil {
			logger.Error("Room subscription stopped", zap.Error(err))
		}
	}()

	// クーロンスケジューラのセットアップと呼び出し
	scheduler, err := utils.CronSweeper(engine, config.RetentionDays, logger)
	if err != nil {
		logger.Fatal("Failed to start cron jobs", zap.Error(err))
	}
	defer scheduler.Stop()

	gateway := &connection.Gateway{
		Engine:   engine,
		Hub:      hub,
		Sessions: connection.NewSessionStore(rdb),
		Upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     allowOrigin(config.AllowOrigins),
		},
		Logger: logger,
	}

	if !*dev {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	//リクエストロガーを起動
	router.Use(gin.Recovery(), utils.RequestLogger(logger))

	//CORS（Cross-Origin Resource Sharing）ポリシーを設定
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "SessionID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(config.AllowOrigins) > 0 {
		corsConfig.AllowOrigins = config.AllowOrigins
	} else {
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	}
	router.Use(cors.New(corsConfig))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	screens.RegisterRoutes(router, engine, gateway, secret, logger)

	server := &http.Server{Addr: config.ListenAddr, Handler: router}
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", config.ListenAddr), zap.Bool("dev", *dev))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}
}

// openRepository は起動モードに応じてリポジトリを選ぶ
func openRepository(config models.Config, dev bool, sqlitePath string, logger *zap.Logger) (condor.Repository, error) {
	if dev && sqlitePath == "" {
		logger.Info("Using in-memory repository")
		return condordb.NewMemory(), nil
	}

	var db *gorm.DB
	var err error
	if sqlitePath != "" {
		db, err = database.InitSQLite(sqlitePath)
	} else {
		db, err = database.InitPostgreSQL(config, logger)
	}
	if err != nil {
		return nil, err
	}
	if err := condordb.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return condordb.NewGorm(db), nil
}

// allowOrigin はWebSocketのオリジン検査。許可リストが空なら全て許可する
func allowOrigin(origins []string) func(r *http.Request) bool {
	if len(origins) == 0 {
		return func(r *http.Request) bool { return true }
	}
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed[origin]
	}
}
