package grade

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract(t *testing.T) {
	cases := []struct {
		name string
		want Tag
	}{
		{"有馬記念(GI)", G1},
		{"有馬記念(G1)", G1},
		{"有馬記念(g1)", G1},
		{"障害(J・G1)", G1},
		{"目黒記念(GII)", G2},
		{"目黒記念(G2)", G2},
		{"鳴尾記念(GIII)", G3},
		{"鳴尾記念(G3)", G3},
		{"フェアリーステークス(Jpn1)", Jpn1},
		{"かしわ記念(JPN2)", Jpn2},
		{"名古屋大賞典(Jpn3)", Jpn3},
		{"オリオンステークス(L)", Listed},
		{"3歳上オープン", Open},
		{"3歳上1勝クラス", Class1Win},
		{"3歳上2勝クラス", Class2Win},
		{"3歳上3勝クラス", Class3Win},
		{"3歳上500万下", Class1Win},
		{"3歳上1000万下", Class2Win},
		{"3歳上1600万下", Class3Win},
		{"障害3歳上オープン", HurdleOpen},
		{"障害3歳上未勝利", HurdleMaiden},
		{"障害3歳上1勝クラス", Hurdle1Win},
		{"障害3歳上2勝クラス", Hurdle2Win},
		{"障害3歳上3勝クラス", Hurdle3Win},
		{"2歳新馬", Debut},
		{"3歳未勝利", Maiden},
		{"", Unknown},
		{"3歳上500万下（指定）", Class1Win}, // full-width parens normalized
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Extract(tc.name))
		})
	}
}

func TestExtract_PriorityG1BeatsOpen(t *testing.T) {
	// A name that could plausibly match both G1 and a lower tag must
	// resolve to the highest-priority tag.
	assert.Equal(t, G1, Extract("日本ダービー(G1)3歳上オープン"))
}

func TestExtract_Deterministic(t *testing.T) {
	name := "天皇賞(秋)(G1)"
	first := Extract(name)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Extract(name))
	}
}
