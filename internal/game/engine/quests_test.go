package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finnkarter/gameosdpas/internal/game/engine"
	"github.com/finnkarter/gameosdpas/internal/game/quest"
	"github.com/finnkarter/gameosdpas/internal/game/rng"
)

func TestQuests_KillQuestPaysOnce(t *testing.T) {
	rolls := make([]float64, 0, 80)
	for range 20 {
		rolls = append(rolls, hitRolls()...)
	}
	h := newHarnessWith(t, cannonCatalog(t), rng.NewSequence(rolls...), nil)
	require.NoError(t, h.eng.AcceptQuest("firing_drill"))

	var completed []string
	h.bus.Subscribe(engine.EventQuestCompleted, func(n engine.Notification) { completed = append(completed, n.QuestID) })

	_, err := h.eng.CompleteQuest("firing_drill")
	assert.ErrorIs(t, err, quest.ErrNotReady)

	for i := range 20 {
		if i > 0 && i%5 == 0 {
			require.NoError(t, h.eng.Reload())
		}
		_, err := h.eng.Fire(factoryTarget())
		require.NoError(t, err)
		h.clock.Advance(time.Second)
	}
	before := h.eng.Snapshot()
	reward, err := h.eng.CompleteQuest("firing_drill")
	require.NoError(t, err)
	assert.Equal(t, quest.Reward{Currency: 2000, Experience: 500}, reward)
	assert.Equal(t, []string{"firing_drill"}, completed)

	after := h.eng.Snapshot()
	assert.GreaterOrEqual(t, after.Currency, before.Currency+2000)
	assert.Equal(t, before.Experience+500, after.Experience)
	assert.Equal(t, 1, after.Lifetime.QuestsCompleted)

	_, err = h.eng.CompleteQuest("firing_drill")
	assert.ErrorIs(t, err, quest.ErrNotReady)
}

func TestQuests_UnlockOnLevelUp(t *testing.T) {
	h := newHarnessWith(t, cannonCatalog(t), rng.NewSequence(hitRolls()...), nil)
	assert.ErrorIs(t, h.eng.AcceptQuest("combo_master"), quest.ErrNotAvailable)

	_, err := h.eng.Fire(factoryTarget()) // reaches level 4
	require.NoError(t, err)
	require.NoError(t, h.eng.AcceptQuest("combo_master"))
	p, err := h.eng.Quest("combo_master")
	require.NoError(t, err)
	assert.Equal(t, quest.Active, p.Status)
	assert.Equal(t, 1, p.Value)
}

func TestQuests_KillQuestSurvivesPrestige(t *testing.T) {
	rolls := make([]float64, 0, 32)
	for range 8 {
		rolls = append(rolls, hitRolls()...)
	}
	h := newHarnessWith(t, cannonCatalog(t), rng.NewSequence(rolls...), nil)
	fire := func(n int) {
		t.Helper()
		for range n {
			_, err := h.eng.Fire(factoryTarget())
			require.NoError(t, err)
			h.clock.Advance(time.Second)
		}
	}

	fire(5)
	require.NoError(t, h.eng.AcceptQuest("firing_drill"))
	h.eng.Prestige()
	fire(3)

	p, err := h.eng.Quest("firing_drill")
	require.NoError(t, err)
	assert.Equal(t, quest.Active, p.Status)
	assert.Equal(t, 3, p.Value, "kills after acceptance count across the reset")

	after := h.eng.Snapshot()
	assert.Equal(t, 3, after.Counters.Kills)
	assert.Equal(t, 8, after.Lifetime.Kills)
}
