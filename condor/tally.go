package condor

import (
	"sort"

	"condorserver/models"
)

// selectedRanks は得点対象になる上位の数
const selectedRanks = 2

// TallyEntry は1つの獣首の集計結果
type TallyEntry struct {
	Artifact models.Artifact
	Votes    int
	Rank     *int
}

// Tally はラウンドの投票を獣首ごとに数え、順位順に並べて返す。
// 票数の多い順、同票なら干支の順。上位2つだけRankが付く
func Tally(artifacts []models.Artifact, votes []models.Vote) []TallyEntry {
	counts := make(map[uint]int, len(artifacts))
	for _, v := range votes {
		counts[v.ArtifactID]++
	}

	entries := make([]TallyEntry, 0, len(artifacts))
	for _, a := range artifacts {
		entries = append(entries, TallyEntry{Artifact: a, Votes: counts[a.ID]})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Votes != b.Votes {
			return a.Votes > b.Votes
		}
		ai, bi := zodiacIndex(a.Artifact.Zodiac), zodiacIndex(b.Artifact.Zodiac)
		if ai != bi {
			return ai < bi
		}
		return a.Artifact.ID < b.Artifact.ID
	})

	for i := range entries {
		if i < selectedRanks {
			rank := i + 1
			entries[i].Rank = &rank
		}
	}
	return entries
}
