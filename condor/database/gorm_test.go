package database_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"condorserver/condor"
	"condorserver/condor/database"
	rootdb "condorserver/database"
	"condorserver/models"
)

func newGorm(t *testing.T) *database.Gorm {
	t.Helper()
	db, err := rootdb.InitSQLite(filepath.Join(t.TempDir(), "condor.db"))
	if err != nil {
		t.Fatalf("InitSQLite: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return database.NewGorm(db)
}

// repositories は両方の実装で同じテストを回す
func repositories(t *testing.T) map[string]func(*testing.T) condor.Repository {
	return map[string]func(*testing.T) condor.Repository{
		"memory": func(*testing.T) condor.Repository { return database.NewMemory() },
		"gorm":   func(t *testing.T) condor.Repository { return newGorm(t) },
	}
}

func createGame(t *testing.T, repo condor.Repository, roomName string) *models.Game {
	t.Helper()
	game := &models.Game{RoomName: roomName, HostUserID: 1, Status: models.StatusWaiting}
	if err := repo.CreateGame(context.Background(), game); err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	return game
}

func TestConditionalUpdates(t *testing.T) {
	for name, open := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			repo := open(t)
			ctx := context.Background()
			game := createGame(t, repo, "12345")

			err := repo.UpdateGameStatus(ctx, game.ID, models.StatusSelecting, models.StatusPlaying)
			if !errors.Is(err, condor.ErrConflict) {
				t.Errorf("stale expected status: %v, want ErrConflict", err)
			}
			err = repo.UpdateGameStatus(ctx, game.ID+100, models.StatusWaiting, models.StatusSelecting)
			if !errors.Is(err, condor.ErrNotFound) {
				t.Errorf("missing game: %v, want ErrNotFound", err)
			}
			if err := repo.UpdateGameStatus(ctx, game.ID, models.StatusWaiting, models.StatusSelecting); err != nil {
				t.Fatalf("UpdateGameStatus: %v", err)
			}
			if err := repo.UpdateGameScore(ctx, game.ID, 0, 2); err != nil {
				t.Fatalf("UpdateGameScore: %v", err)
			}
			if err := repo.UpdateGameScore(ctx, game.ID, 0, 3); !errors.Is(err, condor.ErrConflict) {
				t.Errorf("stale score: %v, want ErrConflict", err)
			}

			got, err := repo.GetGame(ctx, game.ID)
			if err != nil {
				t.Fatal(err)
			}
			if got.Status != models.StatusSelecting || got.Score != 2 {
				t.Errorf("game = %s/%d", got.Status, got.Score)
			}
			if _, err := repo.GetGame(ctx, game.ID+100); !errors.Is(err, condor.ErrNotFound) {
				t.Errorf("GetGame missing: %v", err)
			}
		})
	}
}

func TestDuplicates(t *testing.T) {
	for name, open := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			repo := open(t)
			ctx := context.Background()
			game := createGame(t, repo, "11111")

			dup := &models.Game{RoomName: "11111", HostUserID: 2, Status: models.StatusWaiting}
			if err := repo.CreateGame(ctx, dup); !errors.Is(err, condor.ErrDuplicate) {
				t.Errorf("duplicate room name: %v, want ErrDuplicate", err)
			}

			if err := repo.InsertVote(ctx, &models.Vote{GameID: game.ID, Round: 1, VoterID: 5, ArtifactID: 1}); err != nil {
				t.Fatal(err)
			}
			err := repo.InsertVote(ctx, &models.Vote{GameID: game.ID, Round: 1, VoterID: 5, ArtifactID: 2})
			if !errors.Is(err, condor.ErrDuplicate) {
				t.Errorf("second vote: %v, want ErrDuplicate", err)
			}
			if err := repo.InsertVote(ctx, &models.Vote{GameID: game.ID, Round: 2, VoterID: 5, ArtifactID: 2}); err != nil {
				t.Errorf("vote in next round: %v", err)
			}

			batch := []models.IdentificationVote{
				{GameID: game.ID, VoterID: 5, TargetRole: condor.RoleLaoChaofeng, AccusedID: 6},
				{GameID: game.ID, VoterID: 5, TargetRole: condor.RoleYaoBuran, AccusedID: 7},
			}
			if err := repo.InsertIdentificationVotes(ctx, batch); err != nil {
				t.Fatal(err)
			}
			again := []models.IdentificationVote{{GameID: game.ID, VoterID: 5, TargetRole: condor.RoleYaoBuran, AccusedID: 8}}
			if err := repo.InsertIdentificationVotes(ctx, again); !errors.Is(err, condor.ErrDuplicate) {
				t.Errorf("second identification: %v, want ErrDuplicate", err)
			}
			votes, _ := repo.ListIdentificationVotes(ctx, game.ID)
			if len(votes) != 2 {
				t.Errorf("identification votes = %d, want 2", len(votes))
			}
		})
	}
}

func TestTransactionRollsBack(t *testing.T) {
	for name, open := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			repo := open(t)
			ctx := context.Background()
			boom := errors.New("boom")

			err := repo.Transaction(ctx, func(tx condor.Repository) error {
				game := &models.Game{RoomName: "22222", HostUserID: 1, Status: models.StatusWaiting}
				if err := tx.CreateGame(ctx, game); err != nil {
					return err
				}
				if err := tx.InsertPlayer(ctx, &models.Player{GameID: game.ID, UserID: 1}); err != nil {
					return err
				}
				return boom
			})
			if !errors.Is(err, boom) {
				t.Fatalf("Transaction = %v, want boom", err)
			}
			if _, err := repo.GetGameByRoomName(ctx, "22222"); !errors.Is(err, condor.ErrNotFound) {
				t.Errorf("rolled back game is visible: %v", err)
			}
		})
	}
}

func TestAppendActionSeq(t *testing.T) {
	for name, open := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			repo := open(t)
			ctx := context.Background()
			game := createGame(t, repo, "33333")
			other := createGame(t, repo, "44444")

			for i := 0; i < 3; i++ {
				action := &models.Action{GameID: game.ID, Round: 1, ActorID: uint(10 + i%2), Kind: models.ActionInspectArtifact}
				if err := repo.AppendAction(ctx, action); err != nil {
					t.Fatal(err)
				}
				if action.Seq != uint(i+1) {
					t.Errorf("seq = %d, want %d", action.Seq, i+1)
				}
			}
			// カウンタはゲームごと
			action := &models.Action{GameID: other.ID, Round: 1, ActorID: 20, Kind: models.ActionBlock}
			if err := repo.AppendAction(ctx, action); err != nil {
				t.Fatal(err)
			}
			if action.Seq != 1 {
				t.Errorf("other game seq = %d, want 1", action.Seq)
			}

			mine, err := repo.ListActions(ctx, condor.ActionFilter{GameID: game.ID, ActorID: 10})
			if err != nil {
				t.Fatal(err)
			}
			if len(mine) != 2 || mine[0].Seq != 1 || mine[1].Seq != 3 {
				t.Errorf("actor 10 actions = %+v", mine)
			}

			missing := &models.Action{GameID: other.ID + 100, Round: 1, ActorID: 1, Kind: models.ActionBlock}
			if err := repo.AppendAction(ctx, missing); !errors.Is(err, condor.ErrNotFound) {
				t.Errorf("AppendAction for missing game: %v", err)
			}
		})
	}
}

func TestRoundsAndExpiry(t *testing.T) {
	for name, open := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			repo := open(t)
			ctx := context.Background()
			game := createGame(t, repo, "55555")

			round, err := repo.GetCurrentRound(ctx, game.ID)
			if err != nil || round != nil {
				t.Fatalf("GetCurrentRound on new game = %+v, %v", round, err)
			}

			endsAt := time.Now().Add(-time.Minute)
			r1 := &models.Round{GameID: game.ID, Round: 1, Phase: models.PhaseAction, PhaseEndsAt: &endsAt}
			if err := repo.InsertRound(ctx, r1); err != nil {
				t.Fatal(err)
			}
			expired, err := repo.ListExpiredRounds(ctx, time.Now())
			if err != nil {
				t.Fatal(err)
			}
			if len(expired) != 1 || expired[0].ID != r1.ID {
				t.Errorf("expired = %+v", expired)
			}

			if err := repo.UpdateRoundPhase(ctx, r1.ID, models.PhaseAction, models.PhaseFinished, nil); err != nil {
				t.Fatal(err)
			}
			r2 := &models.Round{GameID: game.ID, Round: 2, Phase: models.PhaseAction}
			if err := repo.InsertRound(ctx, r2); err != nil {
				t.Fatal(err)
			}
			round, err = repo.GetCurrentRound(ctx, game.ID)
			if err != nil || round == nil || round.ID != r2.ID {
				t.Fatalf("GetCurrentRound = %+v, %v", round, err)
			}
			if err := repo.UpdateRoundPhase(ctx, r2.ID, models.PhaseDiscussion, models.PhaseVoting, nil); !errors.Is(err, condor.ErrConflict) {
				t.Errorf("stale phase: %v, want ErrConflict", err)
			}
			expired, _ = repo.ListExpiredRounds(ctx, time.Now())
			if len(expired) != 0 {
				t.Errorf("finished or open-ended rounds listed: %+v", expired)
			}
		})
	}
}

func TestPlayersAndArtifacts(t *testing.T) {
	for name, open := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			repo := open(t)
			ctx := context.Background()
			game := createGame(t, repo, "66666")

			for i := 1; i <= 3; i++ {
				if err := repo.InsertPlayer(ctx, &models.Player{GameID: game.ID, UserID: uint(i)}); err != nil {
					t.Fatal(err)
				}
			}
			players, _ := repo.ListActivePlayers(ctx, game.ID)
			now := time.Now()
			role := condor.RoleXuYuan
			if err := repo.UpdatePlayer(ctx, players[0].ID, condor.PlayerUpdate{LeftAt: &now}); err != nil {
				t.Fatal(err)
			}
			if err := repo.UpdatePlayer(ctx, players[1].ID, condor.PlayerUpdate{Role: &role}); err != nil {
				t.Fatal(err)
			}
			if err := repo.UpdatePlayer(ctx, players[2].ID+100, condor.PlayerUpdate{Role: &role}); !errors.Is(err, condor.ErrNotFound) {
				t.Errorf("update missing player: %v", err)
			}

			active, _ := repo.ListActivePlayers(ctx, game.ID)
			if len(active) != 2 || active[0].ID != players[1].ID || active[0].Role != role {
				t.Errorf("active = %+v", active)
			}

			artifacts := []models.Artifact{
				{GameID: game.ID, Round: 1, Zodiac: "鼠", IsGenuine: true},
				{GameID: game.ID, Round: 1, Zodiac: "牛"},
				{GameID: game.ID, Round: 2, Zodiac: "虎"},
			}
			if err := repo.InsertArtifacts(ctx, artifacts); err != nil {
				t.Fatal(err)
			}
			if err := repo.InsertArtifacts(ctx, nil); err != nil {
				t.Errorf("empty batch: %v", err)
			}
			round1, _ := repo.ListArtifacts(ctx, game.ID, 1)
			all, _ := repo.ListArtifacts(ctx, game.ID, 0)
			if len(round1) != 2 || len(all) != 3 {
				t.Errorf("round1 = %d, all = %d", len(round1), len(all))
			}

			rank := 1
			if err := repo.UpdateArtifactTally(ctx, round1[0].ID, 4, &rank); err != nil {
				t.Fatal(err)
			}
			if err := repo.UpdateArtifactFlags(ctx, round1[1].ID, true, true, true); err != nil {
				t.Fatal(err)
			}
			first, _ := repo.GetArtifact(ctx, round1[0].ID)
			second, _ := repo.GetArtifact(ctx, round1[1].ID)
			if first.Votes != 4 || first.VoteRank == nil || *first.VoteRank != 1 {
				t.Errorf("tally not stored: %+v", first)
			}
			if !second.IsGenuine || !second.IsBlocked || !second.IsSwapped {
				t.Errorf("flags not stored: %+v", second)
			}
		})
	}
}

func TestDeleteFinishedGamesBefore(t *testing.T) {
	for name, open := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			repo := open(t)
			ctx := context.Background()
			finished := createGame(t, repo, "77777")
			waiting := createGame(t, repo, "88888")

			if err := repo.UpdateGameStatus(ctx, finished.ID, models.StatusWaiting, models.StatusFinished); err != nil {
				t.Fatal(err)
			}
			if err := repo.InsertPlayer(ctx, &models.Player{GameID: finished.ID, UserID: 1}); err != nil {
				t.Fatal(err)
			}
			if err := repo.InsertVote(ctx, &models.Vote{GameID: finished.ID, Round: 1, VoterID: 1, ArtifactID: 1}); err != nil {
				t.Fatal(err)
			}

			n, err := repo.DeleteFinishedGamesBefore(ctx, time.Now().Add(-time.Hour))
			if err != nil || n != 0 {
				t.Fatalf("recent games deleted: %d, %v", n, err)
			}
			n, err = repo.DeleteFinishedGamesBefore(ctx, time.Now().Add(time.Hour))
			if err != nil || n != 1 {
				t.Fatalf("DeleteFinishedGamesBefore = %d, %v", n, err)
			}
			if _, err := repo.GetGame(ctx, finished.ID); !errors.Is(err, condor.ErrNotFound) {
				t.Errorf("finished game remains: %v", err)
			}
			if _, err := repo.GetGame(ctx, waiting.ID); err != nil {
				t.Errorf("waiting game removed: %v", err)
			}
			if votes, _ := repo.ListVotes(ctx, finished.ID, 1); len(votes) != 0 {
				t.Errorf("votes of removed game remain: %d", len(votes))
			}
		})
	}
}
