package engine

import (
	"go.uber.org/zap"

	"github.com/finnkarter/gameosdpas/internal/game/quest"
)

func (e *Engine) questStats() quest.Stats {
	c := e.state.Counters
	return quest.Stats{Kills: e.state.Lifetime.Kills, Accuracy: percent(c.ShotsHit, c.ShotsFired), Combo: c.Combo}
}

func (e *Engine) observeQuests() {
	for _, id := range e.quests.Observe(e.questStats()) {
		e.logger.Debug("quest goal met", zap.String("quest", id))
	}
}

// AcceptQuest activates an available quest.
//
// Postcondition: Returns quest.ErrUnknownQuest or quest.ErrNotAvailable with no mutation.
func (e *Engine) AcceptQuest(id string) error {
	if err := e.quests.Accept(id, e.questStats()); err != nil {
		return err
	}
	e.logger.Info("quest accepted", zap.String("quest", id))
	return nil
}

// CompleteQuest turns in an active quest whose goal is met and pays its reward,
// scaled by the prestige multipliers.
//
// Postcondition: Returns quest.ErrUnknownQuest or quest.ErrNotReady with no mutation.
func (e *Engine) CompleteQuest(id string) (quest.Reward, error) {
	reward, err := e.quests.Complete(id)
	if err != nil {
		return quest.Reward{}, err
	}
	paid := quest.Reward{
		Currency:   e.scaleCurrency(reward.Currency),
		Experience: e.scaleExperience(reward.Experience),
	}
	e.state.Lifetime.QuestsCompleted++
	e.earn(paid.Currency)
	e.gainExperience(paid.Experience)

	e.metrics.add(e.metrics.questsTaken, 1)
	e.logger.Info("quest completed",
		zap.String("quest", id),
		zap.Int("currency", paid.Currency),
		zap.Int("experience", paid.Experience),
	)
	e.bus.Publish(Notification{Event: EventQuestCompleted, QuestID: id})
	e.publishStats()
	return paid, nil
}

// Quest returns the progress of one quest.
func (e *Engine) Quest(id string) (quest.Progress, error) {
	return e.quests.Get(id)
}
