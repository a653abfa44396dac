package condor

import (
	"context"
	"time"

	"condorserver/models"
)

// EventName はルームのチャンネルに流すイベント名
type EventName string

const (
	EventRoomUpdate           EventName = "room-update"
	EventSelectionStarted     EventName = "selection-started"
	EventPlayerUnlocked       EventName = "player-unlocked"
	EventRoundAdvanced        EventName = "round-advanced"
	EventVotingComplete       EventName = "voting-complete"
	EventIdentificationUpdate EventName = "identification-update"
	EventGameFinished         EventName = "game-finished"
)

// Event はルームの全購読者に届けるイベント
type Event struct {
	Name    EventName
	GameID  uint
	Payload interface{}
}

// Publisher はイベントをルームのチャンネルに配信する。配信の成否はコミット済みの状態に影響しない
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// GameView はクライアントに見せるゲーム情報
type GameView struct {
	ID          uint              `json:"id"`
	RoomName    string            `json:"roomName"`
	HostUserID  uint              `json:"hostUserId"`
	Status      models.GameStatus `json:"status"`
	PlayerCount int               `json:"playerCount"`
	Score       int               `json:"score"`
	Winner      string            `json:"winner,omitempty"`
}

// PlayerView は役職を伏せたプレイヤー情報
type PlayerView struct {
	ID       uint   `json:"id"`
	UserID   uint   `json:"userId"`
	Nickname string `json:"nickname"`
	Color    string `json:"color,omitempty"`
	HasRole  bool   `json:"hasRole"`
	IsHost   bool   `json:"isHost"`
	IsReady  bool   `json:"isReady"`
	IsOnline bool   `json:"isOnline"`
}

// RoomUpdatePayload はroom-updateの中身
type RoomUpdatePayload struct {
	Game    GameView     `json:"game"`
	Players []PlayerView `json:"players"`
}

type SelectionStartedPayload struct {
	Roles  []string `json:"roles"`
	Colors []string `json:"colors"`
}

type PlayerUnlockedPayload struct {
	PlayerID uint `json:"playerId"`
	IsReady  bool `json:"isReady"`
}

type RoundAdvancedPayload struct {
	Round  int          `json:"round"`
	Phase  models.Phase `json:"phase"`
	EndsAt *time.Time   `json:"endsAt,omitempty"`
}

// ArtifactResult は投票結果の1行
type ArtifactResult struct {
	ArtifactID uint   `json:"artifactId"`
	Zodiac     string `json:"zodiac"`
	Votes      int    `json:"votes"`
	Rank       *int   `json:"rank,omitempty"`
	// 選ばれた獣首だけ真贋を公開する
	IsGenuine *bool `json:"isGenuine,omitempty"`
}

type VotingCompletePayload struct {
	Round   int              `json:"round"`
	Results []ArtifactResult `json:"results"`
	Score   int              `json:"score"`
}

type IdentificationUpdatePayload struct {
	VotedCount          int `json:"votedCount"`
	TotalEligibleVoters int `json:"totalEligibleVoters"`
}

type GameFinishedPayload struct {
	Winner          Camp                    `json:"winner"`
	Score           int                     `json:"score"`
	FinalScore      int                     `json:"finalScore"`
	Identifications []IdentificationOutcome `json:"identifications"`
}

func gameView(g *models.Game) GameView {
	return GameView{
		ID:          g.ID,
		RoomName:    g.RoomName,
		HostUserID:  g.HostUserID,
		Status:      g.Status,
		PlayerCount: g.PlayerCount,
		Score:       g.Score,
		Winner:      g.Winner,
	}
}

func playerViews(players []models.Player) []PlayerView {
	views := make([]PlayerView, 0, len(players))
	for _, p := range players {
		views = append(views, PlayerView{
			ID:       p.ID,
			UserID:   p.UserID,
			Nickname: p.Nickname,
			Color:    p.Color,
			HasRole:  p.Role != "",
			IsHost:   p.IsHost,
			IsReady:  p.IsReady,
			IsOnline: p.IsOnline,
		})
	}
	return views
}
