package models

// Config はサーバー全体の設定。config.jsonを読み込んだ後、環境変数で上書きする
type Config struct {
	DBHost     string `json:"db_host" env:"DB_HOST"`
	DBUser     string `json:"db_user" env:"DB_USER"`
	DBPassword string `json:"db_password" env:"DB_PASSWORD"`
	DBName     string `json:"db_name" env:"DB_NAME"`
	DBSSLMode  string `json:"db_sslmode" env:"DB_SSLMODE"`

	RedisAddr     string `json:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword string `json:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int    `json:"redis_db" env:"REDIS_DB"`

	JWTSecret    string   `json:"jwt_secret" env:"JWT_SECRET"`
	ListenAddr   string   `json:"listen_addr" env:"LISTEN_ADDR"`
	AllowOrigins []string `json:"allow_origins" env:"ALLOW_ORIGINS" envSeparator:","`

	// 終了したルームを保持する日数
	RetentionDays int `json:"retention_days" env:"RETENTION_DAYS"`

	// ゲームルールの上書き。0のままならデフォルト値を使う
	WinningScore         int     `json:"winning_score" env:"WINNING_SCORE"`
	ArtifactsPerRound    int     `json:"artifacts_per_round" env:"ARTIFACTS_PER_ROUND"`
	IdentificationQuorum float64 `json:"identification_quorum" env:"IDENTIFICATION_QUORUM"`
	ActionSeconds        int     `json:"action_seconds" env:"ACTION_SECONDS"`
	DiscussionSeconds    int     `json:"discussion_seconds" env:"DISCUSSION_SECONDS"`
	VotingSeconds        int     `json:"voting_seconds" env:"VOTING_SECONDS"`
}
