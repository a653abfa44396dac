package condor_test

import (
	"context"
	"sort"
	"sync"
	"testing"

	"condorserver/condor"
	"condorserver/models"
)

func TestQuotaExceededWritesNothing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	gameID, byRole := h.start(t, sixRoles)
	xu := byRole[condor.RoleXuYuan].ID
	artifacts := h.artifacts(t, gameID, 1)

	for i := 0; i < 2; i++ {
		if _, err := h.engine.SubmitAction(ctx, gameID, xu, condor.InspectArtifact{ArtifactID: artifacts[i].ID}); err != nil {
			t.Fatalf("inspect %d: %v", i+1, err)
		}
	}
	_, err := h.engine.SubmitAction(ctx, gameID, xu, condor.InspectArtifact{ArtifactID: artifacts[2].ID})
	wantKind(t, err, condor.KindQuotaExceeded)

	actions, err := h.engine.ListMyActions(ctx, gameID, xu)
	if err != nil {
		t.Fatal(err)
	}
	if len(actions) != 2 {
		t.Errorf("stored actions = %d, want 2", len(actions))
	}
}

func TestActionSeqUnderConcurrency(t *testing.T) {
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			h := open(t)
			ctx := context.Background()
			gameID, byRole := h.start(t, sixRoles)
			artifacts := h.artifacts(t, gameID, 1)

			type submission struct {
				actor uint
				req   condor.ActionRequest
			}
			submissions := []submission{
				{byRole[condor.RoleXuYuan].ID, condor.InspectArtifact{ArtifactID: artifacts[0].ID}},
				{byRole[condor.RoleXuYuan].ID, condor.InspectArtifact{ArtifactID: artifacts[1].ID}},
				{byRole[condor.RoleFangZhen].ID, condor.InspectPerson{PlayerID: byRole[condor.RoleLaoChaofeng].ID}},
				{byRole[condor.RoleHuangYanyan].ID, condor.InspectArtifact{ArtifactID: artifacts[1].ID}},
				{byRole[condor.RoleKidoKana].ID, condor.InspectArtifact{ArtifactID: artifacts[2].ID}},
				{byRole[condor.RoleLaoChaofeng].ID, condor.Block{ArtifactID: artifacts[3].ID}},
				{byRole[condor.RoleYaoBuran].ID, condor.Attack{PlayerID: byRole[condor.RoleKidoKana].ID}},
			}

			seqs := make([]uint, len(submissions))
			var wg sync.WaitGroup
			for i, s := range submissions {
				wg.Add(1)
				go func(i int, s submission) {
					defer wg.Done()
					res, err := h.engine.SubmitAction(ctx, gameID, s.actor, s.req)
					if err != nil {
						t.Errorf("SubmitAction(%s): %v", s.req.Kind(), err)
						return
					}
					seqs[i] = res.Seq
				}(i, s)
			}
			wg.Wait()

			sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })
			for i, seq := range seqs {
				if seq != uint(i+1) {
					t.Fatalf("seqs = %v, want 1..%d", seqs, len(submissions))
				}
			}
			actions, err := h.repo.ListActions(ctx, condor.ActionFilter{GameID: gameID})
			if err != nil {
				t.Fatal(err)
			}
			if len(actions) != len(submissions) {
				t.Errorf("stored actions = %d, want %d", len(actions), len(submissions))
			}
			if got := h.game(t, gameID).ActionSeq; got != uint(len(submissions)) {
				t.Errorf("ActionSeq = %d, want %d", got, len(submissions))
			}
		})
	}
}

func TestActionValidationOrder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	gameID, byRole := h.start(t, sixRoles)
	artifacts := h.artifacts(t, gameID, 1)
	fang := byRole[condor.RoleFangZhen].ID
	xu := byRole[condor.RoleXuYuan].ID

	tests := []struct {
		name  string
		actor uint
		req   condor.ActionRequest
		kind  condor.Kind
	}{
		{"wrong skill for role", fang, condor.Block{ArtifactID: artifacts[0].ID}, condor.KindRoleMismatch},
		{"not a player", 9999, condor.InspectArtifact{ArtifactID: artifacts[0].ID}, condor.KindRoleMismatch},
		{"inspect self", fang, condor.InspectPerson{PlayerID: fang}, condor.KindInvalidTarget},
		{"missing person", fang, condor.InspectPerson{}, condor.KindInvalidTarget},
		{"unknown artifact", xu, condor.InspectArtifact{ArtifactID: 9999}, condor.KindInvalidTarget},
		{"nil request", xu, nil, condor.KindInvalidTarget},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.engine.SubmitAction(ctx, gameID, tt.actor, tt.req)
			wantKind(t, err, tt.kind)
		})
	}

	h.toVoting(t, gameID, 1)
	// 役職の確認はフェーズより先
	_, err := h.engine.SubmitAction(ctx, gameID, fang, condor.Block{ArtifactID: artifacts[0].ID})
	wantKind(t, err, condor.KindRoleMismatch)
	_, err = h.engine.SubmitAction(ctx, gameID, xu, condor.InspectArtifact{ArtifactID: artifacts[0].ID})
	wantKind(t, err, condor.KindPhaseNotAllowed)

	actions, _ := h.repo.ListActions(ctx, condor.ActionFilter{GameID: gameID})
	if len(actions) != 0 {
		t.Errorf("rejected actions were stored: %d", len(actions))
	}
}

func TestInspectPersonConcealsMastermind(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	gameID, byRole := h.start(t, sixRoles)
	fang := byRole[condor.RoleFangZhen].ID

	res, err := h.engine.SubmitAction(ctx, gameID, fang, condor.InspectPerson{PlayerID: byRole[condor.RoleLaoChaofeng].ID})
	if err != nil {
		t.Fatal(err)
	}
	if res.Person == nil || res.Person.Camp != condor.CampGood {
		t.Errorf("老朝奉 read as %+v, want good", res.Person)
	}

	h.finishRound(t, gameID, 1)
	res, err = h.engine.SubmitAction(ctx, gameID, fang, condor.InspectPerson{PlayerID: byRole[condor.RoleYaoBuran].ID})
	if err != nil {
		t.Fatal(err)
	}
	if res.Round != 2 || res.Person == nil || res.Person.Camp != condor.CampBad {
		t.Errorf("藥不然 read as %+v in round %d, want bad", res.Person, res.Round)
	}
}

func TestBlockedArtifactReadsUnknown(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	gameID, byRole := h.start(t, sixRoles)
	target := h.artifacts(t, gameID, 1)[0]

	if _, err := h.engine.SubmitAction(ctx, gameID, byRole[condor.RoleLaoChaofeng].ID, condor.Block{ArtifactID: target.ID}); err != nil {
		t.Fatal(err)
	}
	res, err := h.engine.SubmitAction(ctx, gameID, byRole[condor.RoleXuYuan].ID, condor.InspectArtifact{ArtifactID: target.ID})
	if err != nil {
		t.Fatal(err)
	}
	if res.Artifact == nil || res.Artifact.Reading != condor.ReadingUnknown {
		t.Errorf("blocked artifact read as %+v", res.Artifact)
	}
}

func TestAttackedPlayerIsBlockedForTheRound(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	gameID, byRole := h.start(t, sixRoles)
	xu := byRole[condor.RoleXuYuan].ID
	artifact := h.artifacts(t, gameID, 1)[0]

	if _, err := h.engine.SubmitAction(ctx, gameID, byRole[condor.RoleYaoBuran].ID, condor.Attack{PlayerID: xu}); err != nil {
		t.Fatal(err)
	}
	res, err := h.engine.SubmitAction(ctx, gameID, xu, condor.InspectArtifact{ArtifactID: artifact.ID})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Blocked || res.Artifact != nil {
		t.Errorf("blocked actor got %+v", res)
	}
	actions, _ := h.engine.ListMyActions(ctx, gameID, xu)
	if len(actions) != 1 || !actions[0].Blocked {
		t.Fatalf("actions = %+v, want one blocked row", actions)
	}

	// 次のラウンドでは封鎖が解ける
	h.finishRound(t, gameID, 1)
	next := h.artifacts(t, gameID, 2)[0]
	res, err = h.engine.SubmitAction(ctx, gameID, xu, condor.InspectArtifact{ArtifactID: next.ID})
	if err != nil {
		t.Fatal(err)
	}
	if res.Blocked || res.Artifact == nil || res.Artifact.Reading == condor.ReadingUnknown {
		t.Errorf("round 2 inspect = %+v", res)
	}
}

func TestAttackOnJiYunfuIsPermanent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	gameID, byRole := h.start(t, eightRoles)
	ji := byRole[condor.RoleJiYunfu].ID

	if _, err := h.engine.SubmitAction(ctx, gameID, byRole[condor.RoleYaoBuran].ID, condor.Attack{PlayerID: ji}); err != nil {
		t.Fatal(err)
	}
	p, err := h.repo.GetPlayer(ctx, ji)
	if err != nil {
		t.Fatal(err)
	}
	if p.BlockedRound != condor.PermanentBlockRound {
		t.Fatalf("BlockedRound = %d, want permanent", p.BlockedRound)
	}

	h.finishRound(t, gameID, 1)
	res, err := h.engine.SubmitAction(ctx, gameID, ji, condor.InspectArtifact{ArtifactID: h.artifacts(t, gameID, 2)[0].ID})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Blocked {
		t.Error("姬雲浮 should stay blocked in round 2")
	}
}

func TestSwapExchangesGenuineness(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	gameID, byRole := h.start(t, eightRoles)
	zheng := byRole[condor.RoleZhengGuoqu].ID
	round1 := h.artifacts(t, gameID, 1)

	// 鄭國渠は第1ラウンドではスキルを使えない
	_, err := h.engine.SubmitAction(ctx, gameID, zheng, condor.Swap{FirstArtifactID: round1[0].ID, SecondArtifactID: round1[1].ID})
	wantKind(t, err, condor.KindPhaseNotAllowed)

	h.finishRound(t, gameID, 1)
	artifacts := h.artifacts(t, gameID, 2)
	first, second := artifacts[0], artifacts[1]
	for _, a := range artifacts[1:] {
		if a.IsGenuine != first.IsGenuine {
			second = a
			break
		}
	}

	_, err = h.engine.SubmitAction(ctx, gameID, zheng, condor.Swap{FirstArtifactID: first.ID, SecondArtifactID: first.ID})
	wantKind(t, err, condor.KindInvalidTarget)
	// 前のラウンドの獣首は対象外
	_, err = h.engine.SubmitAction(ctx, gameID, zheng, condor.Swap{FirstArtifactID: round1[0].ID, SecondArtifactID: first.ID})
	wantKind(t, err, condor.KindInvalidTarget)

	res, err := h.engine.SubmitAction(ctx, gameID, zheng, condor.Swap{FirstArtifactID: first.ID, SecondArtifactID: second.ID})
	if err != nil {
		t.Fatal(err)
	}
	if res.Artifact != nil || res.Person != nil {
		t.Errorf("swap revealed %+v", res)
	}

	gotFirst, _ := h.repo.GetArtifact(ctx, first.ID)
	gotSecond, _ := h.repo.GetArtifact(ctx, second.ID)
	if gotFirst.IsGenuine != second.IsGenuine || gotSecond.IsGenuine != first.IsGenuine {
		t.Errorf("genuineness not exchanged: %v/%v -> %v/%v", first.IsGenuine, second.IsGenuine, gotFirst.IsGenuine, gotSecond.IsGenuine)
	}
	if !gotFirst.IsSwapped || !gotSecond.IsSwapped {
		t.Error("swapped flags not set")
	}

	_, err = h.engine.SubmitAction(ctx, gameID, zheng, condor.Swap{FirstArtifactID: first.ID, SecondArtifactID: second.ID})
	wantKind(t, err, condor.KindQuotaExceeded)
}

func TestListMyActionsOnlyOwnRows(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	gameID, byRole := h.start(t, sixRoles)
	artifacts := h.artifacts(t, gameID, 1)

	if _, err := h.engine.SubmitAction(ctx, gameID, byRole[condor.RoleHuangYanyan].ID, condor.InspectArtifact{ArtifactID: artifacts[0].ID}); err != nil {
		t.Fatal(err)
	}
	if _, err := h.engine.SubmitAction(ctx, gameID, byRole[condor.RoleKidoKana].ID, condor.InspectArtifact{ArtifactID: artifacts[1].ID}); err != nil {
		t.Fatal(err)
	}
	actions, err := h.engine.ListMyActions(ctx, gameID, byRole[condor.RoleKidoKana].ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(actions) != 1 || actions[0].Seq != 2 || actions[0].Kind != models.ActionInspectArtifact {
		t.Errorf("actions = %+v", actions)
	}
}
