package main

// Achievement definitions
type AchievementDef struct {
	ID          string
	Name        string
	Description string
}

var Achievements = []AchievementDef{
	{"liftoff", "Liftoff", "Finish your first run, however it ends"},
	{"halfway", "Halfway There", "Reach 50% on any level"},
	{"closer", "So Close", "Reach 90% on any level"},
	{"finisher", "Finisher", "Complete your first level"},
	{"hat_trick", "Hat Trick", "Complete three different levels"},
	{"persistent", "Persistent", "Rack up 100 attempts"},
	{"grinder", "Grinder", "Rack up 1000 attempts"},
	{"decorated", "Decorated", "Complete ten runs"},
}

// CheckAchievements checks if any new achievements should be unlocked after
// a finished run. Returns the newly unlocked definitions.
func CheckAchievements(db *DB, playerID int64, percent float64, won bool) []AchievementDef {
	if db == nil || playerID == 0 {
		return nil
	}

	attempts, completions, bestPercent, err := db.GetRunTotals(playerID)
	if err != nil {
		return nil
	}
	levelsDone, err := db.CompletedLevels(playerID)
	if err != nil {
		return nil
	}

	existing, err := db.GetAchievements(playerID)
	if err != nil {
		return nil
	}
	has := make(map[string]bool, len(existing))
	for _, id := range existing {
		has[id] = true
	}

	check := func(id string) bool {
		if has[id] {
			return false
		}
		switch id {
		case "liftoff":
			return attempts >= 1
		case "halfway":
			return percent >= 50 || bestPercent >= 50
		case "closer":
			return percent >= 90 || bestPercent >= 90
		case "finisher":
			return won || completions >= 1
		case "hat_trick":
			return levelsDone >= 3
		case "persistent":
			return attempts >= 100
		case "grinder":
			return attempts >= 1000
		case "decorated":
			return completions >= 10
		}
		return false
	}

	var unlocked []AchievementDef
	for _, def := range Achievements {
		if check(def.ID) {
			if newlyUnlocked, err := db.UnlockAchievement(playerID, def.ID); err == nil && newlyUnlocked {
				unlocked = append(unlocked, def)
			}
		}
	}

	return unlocked
}
