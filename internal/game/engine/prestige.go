package engine

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/finnkarter/gameosdpas/internal/game/combat"
)

var (
	currencyBonusPerPrestige   = decimal.RequireFromString("0.1")
	experienceBonusPerPrestige = decimal.RequireFromString("0.05")
)

// PrestigeResult describes a completed prestige reset.
type PrestigeResult struct {
	// Prestige is the new prestige count.
	Prestige int
	// PreviousLevel is the level given up.
	PreviousLevel int
	// ForfeitedCurrency is the balance given up.
	ForfeitedCurrency int
	// CurrencyMultiplier and ExperienceMultiplier apply to rewards from now on.
	CurrencyMultiplier   decimal.Decimal
	ExperienceMultiplier decimal.Decimal
}

// CurrencyMultiplier returns 1 + prestige*0.1.
func CurrencyMultiplier(prestige int) decimal.Decimal {
	return decimal.NewFromInt(1).Add(decimal.NewFromInt(int64(prestige)).Mul(currencyBonusPerPrestige))
}

// ExperienceMultiplier returns 1 + prestige*0.05.
func ExperienceMultiplier(prestige int) decimal.Decimal {
	return decimal.NewFromInt(1).Add(decimal.NewFromInt(int64(prestige)).Mul(experienceBonusPerPrestige))
}

// applyMultiplier returns floor(amount * m) computed exactly.
func applyMultiplier(amount int, m decimal.Decimal) int {
	if amount <= 0 {
		return 0
	}
	return int(decimal.NewFromInt(int64(amount)).Mul(m).Floor().IntPart())
}

func (e *Engine) scaleCurrency(amount int) int {
	return applyMultiplier(amount, CurrencyMultiplier(e.state.Prestige))
}

func (e *Engine) scaleExperience(amount int) int {
	return applyMultiplier(amount, ExperienceMultiplier(e.state.Prestige))
}

// Prestige resets currency, experience, level and combat counters and increments the
// prestige count. Play time, lifetime totals, unlocked weapons, upgrade levels and
// quest progress are kept; the starting weapon is equipped again and every
// magazine is restocked.
//
// Postcondition: Currency == starting currency, Experience == 0, Level == 1,
// Prestige incremented by one, PlayTime unchanged.
func (e *Engine) Prestige() PrestigeResult {
	res := PrestigeResult{
		Prestige:          e.state.Prestige + 1,
		PreviousLevel:     e.state.Level,
		ForfeitedCurrency: e.state.Currency,
	}
	res.CurrencyMultiplier = CurrencyMultiplier(res.Prestige)
	res.ExperienceMultiplier = ExperienceMultiplier(res.Prestige)

	start := e.cat.Starting()
	e.state.Currency = e.settings.StartingCurrency
	e.state.Experience = 0
	e.state.Level = 1
	e.state.Counters = Counters{}
	e.state.Prestige = res.Prestige
	e.state.Equipped = start.ID
	e.state.unlock(start.ID)
	// Every weapon is restocked; cooldowns carry over.
	e.mags = make(map[string]*combat.Magazine)
	e.loadWeapon(start)
	e.target = nil

	e.metrics.add(e.metrics.prestiges, 1)
	e.logger.Info("prestige activated",
		zap.Int("prestige", res.Prestige),
		zap.Int("previous_level", res.PreviousLevel),
		zap.Int("forfeited_currency", res.ForfeitedCurrency),
		zap.String("currency_multiplier", res.CurrencyMultiplier.String()),
	)
	e.bus.Publish(Notification{Event: EventPrestigeActivated, Prestige: res})
	e.publishWeapon(start)
	e.publishStats()
	return res
}
