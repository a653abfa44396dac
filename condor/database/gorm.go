package database

import (
	"context"
	"errors"
	"strings"
	"time"

	"condorserver/condor"
	"condorserver/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Gorm はPostgreSQL(本番)とSQLite(テスト)で動くリポジトリ
type Gorm struct {
	db *gorm.DB
}

// NewGorm はdbを使うリポジトリを作る。dbはTranslateError: trueで開いておく
func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

var _ condor.Repository = (*Gorm)(nil)

// AutoMigrate はゲームのテーブルを作成・更新する
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Game{},
		&models.Player{},
		&models.Round{},
		&models.Artifact{},
		&models.Vote{},
		&models.Action{},
		&models.IdentificationVote{},
	)
}

// translate はドライバのエラーをリポジトリ共通のエラーに変換する
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return condor.ErrNotFound
	}
	if isDuplicate(err) {
		return condor.ErrDuplicate
	}
	return err
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (r *Gorm) conn(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

func (r *Gorm) Transaction(ctx context.Context, fn func(tx condor.Repository) error) error {
	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Gorm{db: tx})
	})
}

// conditional は条件付き更新の結果を判定する。1行も更新されなければ、行がないのか条件が外れたのかを見分ける
func (r *Gorm) conditional(ctx context.Context, res *gorm.DB, model interface{}, id uint) error {
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}
	var count int64
	if err := r.conn(ctx).Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return translate(err)
	}
	if count == 0 {
		return condor.ErrNotFound
	}
	return condor.ErrConflict
}

func (r *Gorm) CreateGame(ctx context.Context, game *models.Game) error {
	return translate(r.conn(ctx).Create(game).Error)
}

func (r *Gorm) GetGame(ctx context.Context, id uint) (*models.Game, error) {
	var game models.Game
	if err := r.conn(ctx).First(&game, id).Error; err != nil {
		return nil, translate(err)
	}
	return &game, nil
}

func (r *Gorm) GetGameByRoomName(ctx context.Context, roomName string) (*models.Game, error) {
	var game models.Game
	if err := r.conn(ctx).Where("room_name = ?", roomName).First(&game).Error; err != nil {
		return nil, translate(err)
	}
	return &game, nil
}

// LockGame はSELECT ... FOR UPDATE。SQLiteでは句が無視されるが、書き込みが直列なので問題ない
func (r *Gorm) LockGame(ctx context.Context, id uint) (*models.Game, error) {
	var game models.Game
	err := r.conn(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&game, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &game, nil
}

func (r *Gorm) UpdateGameStatus(ctx context.Context, id uint, expected, next models.GameStatus) error {
	res := r.conn(ctx).Model(&models.Game{}).
		Where("id = ? AND status = ?", id, expected).
		Update("status", next)
	return r.conditional(ctx, res, &models.Game{}, id)
}

func (r *Gorm) UpdateGameScore(ctx context.Context, id uint, expected, next int) error {
	res := r.conn(ctx).Model(&models.Game{}).
		Where("id = ? AND score = ?", id, expected).
		Update("score", next)
	return r.conditional(ctx, res, &models.Game{}, id)
}

func (r *Gorm) UpdateGameHost(ctx context.Context, id uint, hostUserID uint) error {
	res := r.conn(ctx).Model(&models.Game{}).Where("id = ?", id).Update("host_user_id", hostUserID)
	return r.conditional(ctx, res, &models.Game{}, id)
}

func (r *Gorm) UpdateGamePlayerCount(ctx context.Context, id uint, count int) error {
	res := r.conn(ctx).Model(&models.Game{}).Where("id = ?", id).Update("player_count", count)
	return r.conditional(ctx, res, &models.Game{}, id)
}

func (r *Gorm) UpdateGameWinner(ctx context.Context, id uint, winner string) error {
	res := r.conn(ctx).Model(&models.Game{}).
		Where("id = ? AND winner = ?", id, "").
		Update("winner", winner)
	return r.conditional(ctx, res, &models.Game{}, id)
}

func (r *Gorm) InsertPlayer(ctx context.Context, player *models.Player) error {
	return translate(r.conn(ctx).Create(player).Error)
}

func (r *Gorm) GetPlayer(ctx context.Context, id uint) (*models.Player, error) {
	var player models.Player
	if err := r.conn(ctx).First(&player, id).Error; err != nil {
		return nil, translate(err)
	}
	return &player, nil
}

func (r *Gorm) ListActivePlayers(ctx context.Context, gameID uint) ([]models.Player, error) {
	var players []models.Player
	err := r.conn(ctx).
		Where("game_id = ? AND left_at IS NULL", gameID).
		Order("id").
		Find(&players).Error
	return players, translate(err)
}

func (r *Gorm) UpdatePlayer(ctx context.Context, id uint, u condor.PlayerUpdate) error {
	updates := map[string]interface{}{}
	if u.Role != nil {
		updates["role"] = *u.Role
	}
	if u.Color != nil {
		updates["color"] = *u.Color
	}
	if u.IsHost != nil {
		updates["is_host"] = *u.IsHost
	}
	if u.IsReady != nil {
		updates["is_ready"] = *u.IsReady
	}
	if u.IsOnline != nil {
		updates["is_online"] = *u.IsOnline
	}
	if u.LeftAt != nil {
		updates["left_at"] = *u.LeftAt
	}
	if u.BlockedRound != nil {
		updates["blocked_round"] = *u.BlockedRound
	}
	if len(updates) == 0 {
		return nil
	}
	res := r.conn(ctx).Model(&models.Player{}).Where("id = ?", id).Updates(updates)
	return r.conditional(ctx, res, &models.Player{}, id)
}

func (r *Gorm) GetCurrentRound(ctx context.Context, gameID uint) (*models.Round, error) {
	var rounds []models.Round
	err := r.conn(ctx).
		Where("game_id = ? AND phase <> ?", gameID, models.PhaseFinished).
		Order("round DESC").
		Limit(1).
		Find(&rounds).Error
	if err != nil {
		return nil, translate(err)
	}
	if len(rounds) == 0 {
		return nil, nil
	}
	return &rounds[0], nil
}

func (r *Gorm) InsertRound(ctx context.Context, round *models.Round) error {
	return translate(r.conn(ctx).Create(round).Error)
}

func (r *Gorm) UpdateRoundPhase(ctx context.Context, id uint, expected, next models.Phase, endsAt *time.Time) error {
	res := r.conn(ctx).Model(&models.Round{}).
		Where("id = ? AND phase = ?", id, expected).
		Updates(map[string]interface{}{"phase": next, "phase_ends_at": endsAt})
	return r.conditional(ctx, res, &models.Round{}, id)
}

func (r *Gorm) ListExpiredRounds(ctx context.Context, now time.Time) ([]models.Round, error) {
	var rounds []models.Round
	err := r.conn(ctx).
		Where("phase <> ? AND phase_ends_at IS NOT NULL AND phase_ends_at < ?", models.PhaseFinished, now).
		Order("id").
		Find(&rounds).Error
	return rounds, translate(err)
}

func (r *Gorm) InsertArtifacts(ctx context.Context, artifacts []models.Artifact) error {
	if len(artifacts) == 0 {
		return nil
	}
	return translate(r.conn(ctx).Create(&artifacts).Error)
}

func (r *Gorm) GetArtifact(ctx context.Context, id uint) (*models.Artifact, error) {
	var artifact models.Artifact
	if err := r.conn(ctx).First(&artifact, id).Error; err != nil {
		return nil, translate(err)
	}
	return &artifact, nil
}

func (r *Gorm) ListArtifacts(ctx context.Context, gameID uint, round int) ([]models.Artifact, error) {
	q := r.conn(ctx).Where("game_id = ?", gameID)
	if round != 0 {
		q = q.Where("round = ?", round)
	}
	var artifacts []models.Artifact
	err := q.Order("id").Find(&artifacts).Error
	return artifacts, translate(err)
}

func (r *Gorm) UpdateArtifactTally(ctx context.Context, id uint, votes int, rank *int) error {
	res := r.conn(ctx).Model(&models.Artifact{}).Where("id = ?", id).
		Updates(map[string]interface{}{"votes": votes, "vote_rank": rank})
	return r.conditional(ctx, res, &models.Artifact{}, id)
}

func (r *Gorm) UpdateArtifactFlags(ctx context.Context, id uint, genuine, blocked, swapped bool) error {
	res := r.conn(ctx).Model(&models.Artifact{}).Where("id = ?", id).
		Updates(map[string]interface{}{"is_genuine": genuine, "is_blocked": blocked, "is_swapped": swapped})
	return r.conditional(ctx, res, &models.Artifact{}, id)
}

func (r *Gorm) InsertVote(ctx context.Context, vote *models.Vote) error {
	return translate(r.conn(ctx).Create(vote).Error)
}

func (r *Gorm) ListVotes(ctx context.Context, gameID uint, round int) ([]models.Vote, error) {
	var votes []models.Vote
	err := r.conn(ctx).Where("game_id = ? AND round = ?", gameID, round).Order("id").Find(&votes).Error
	return votes, translate(err)
}

func (r *Gorm) AppendAction(ctx context.Context, action *models.Action) error {
	return translate(r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Game{}).Where("id = ?", action.GameID).
			UpdateColumn("action_seq", gorm.Expr("action_seq + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		var seq uint
		if err := tx.Model(&models.Game{}).Where("id = ?", action.GameID).Select("action_seq").Scan(&seq).Error; err != nil {
			return err
		}
		action.Seq = seq
		return tx.Create(action).Error
	}))
}

func (r *Gorm) ListActions(ctx context.Context, f condor.ActionFilter) ([]models.Action, error) {
	q := r.conn(ctx).Where("game_id = ?", f.GameID)
	if f.Round != 0 {
		q = q.Where("round = ?", f.Round)
	}
	if f.ActorID != 0 {
		q = q.Where("actor_id = ?", f.ActorID)
	}
	if f.Kind != "" {
		q = q.Where("kind = ?", f.Kind)
	}
	var actions []models.Action
	err := q.Order("seq").Find(&actions).Error
	return actions, translate(err)
}

func (r *Gorm) InsertIdentificationVotes(ctx context.Context, votes []models.IdentificationVote) error {
	if len(votes) == 0 {
		return nil
	}
	return translate(r.conn(ctx).Create(&votes).Error)
}

func (r *Gorm) ListIdentificationVotes(ctx context.Context, gameID uint) ([]models.IdentificationVote, error) {
	var votes []models.IdentificationVote
	err := r.conn(ctx).Where("game_id = ?", gameID).Order("id").Find(&votes).Error
	return votes, translate(err)
}

// DeleteFinishedGamesBefore は終了済みゲームと関連する行を物理削除する
func (r *Gorm) DeleteFinishedGamesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	err := r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []uint
		err := tx.Model(&models.Game{}).
			Where("status = ? AND updated_at < ?", models.StatusFinished, cutoff).
			Pluck("id", &ids).Error
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		for _, model := range []interface{}{
			&models.Player{}, &models.Round{}, &models.Artifact{},
			&models.Vote{}, &models.Action{}, &models.IdentificationVote{},
		} {
			if err := tx.Unscoped().Where("game_id IN ?", ids).Delete(model).Error; err != nil {
				return err
			}
		}
		res := tx.Unscoped().Where("id IN ?", ids).Delete(&models.Game{})
		deleted = res.RowsAffected
		return res.Error
	})
	return deleted, translate(err)
}
