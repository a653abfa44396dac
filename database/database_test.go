package database

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	path := writeConfig(t, `{
		"db_host": "db",
		"db_user": "condor",
		"redis_addr": "redis:6379",
		"jwt_secret": "from-file",
		"winning_score": 5
	}`)
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("ALLOW_ORIGINS", "http://a.example,http://b.example")
	t.Setenv("VOTING_SECONDS", "30")

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if config.DBHost != "db" || config.DBUser != "condor" || config.RedisAddr != "redis:6379" {
		t.Errorf("file values lost: %+v", config)
	}
	if config.JWTSecret != "from-env" {
		t.Errorf("JWTSecret = %q, env should win", config.JWTSecret)
	}
	if want := []string{"http://a.example", "http://b.example"}; !reflect.DeepEqual(config.AllowOrigins, want) {
		t.Errorf("AllowOrigins = %v", config.AllowOrigins)
	}
	if config.WinningScore != 5 || config.VotingSeconds != 30 {
		t.Errorf("rule overrides = %d/%d", config.WinningScore, config.VotingSeconds)
	}
	if config.ListenAddr != ":8080" {
		t.Errorf("ListenAddr default = %q", config.ListenAddr)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	config, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if config.RedisAddr != "localhost:6379" || config.ListenAddr != ":8080" {
		t.Errorf("defaults = %q %q", config.RedisAddr, config.ListenAddr)
	}
}

func TestLoadConfigBrokenFile(t *testing.T) {
	if _, err := LoadConfig(writeConfig(t, `{"db_host":`)); err == nil {
		t.Error("broken JSON accepted")
	}
}

func TestInitSQLite(t *testing.T) {
	db, err := InitSQLite(filepath.Join(t.TempDir(), "dev.db"))
	if err != nil {
		t.Fatal(err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatal(err)
	}
	defer sqlDB.Close()
	if n := sqlDB.Stats().MaxOpenConnections; n != 1 {
		t.Errorf("MaxOpenConnections = %d", n)
	}
}
