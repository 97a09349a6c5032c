package engine

import (
	"context"
	"fmt"

	"github.com/couchcryptid/weathernft-service/internal/domain"
	"github.com/couchcryptid/weathernft-service/internal/settings"
)

// LoadSettings seeds the store from the settings repository when a snapshot
// has been saved before. It is called once at startup.
func (e *Engine) LoadSettings(ctx context.Context) error {
	if e.settingsRepo == nil {
		return nil
	}
	snap, found, err := e.settingsRepo.Load(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if !found {
		e.logger.Info("no persisted settings, using defaults")
		return nil
	}
	e.settings.Replace(snap)
	e.limiter.resize(snap.AISettings.MaxEventsPerHour, e.clock.Now())
	e.logger.Info("persisted settings loaded",
		"enabled_algorithms", len(snap.AISettings.EnabledAlgorithms),
		"max_events_per_hour", snap.AISettings.MaxEventsPerHour,
	)
	return nil
}

// Settings returns the current settings.
func (e *Engine) Settings() settings.Snapshot {
	return e.settings.Get()
}

// UpdateSettings merges a partial update into the settings.
func (e *Engine) UpdateSettings(ctx context.Context, p settings.Patch) (settings.Snapshot, error) {
	snap, err := e.settings.Update(p)
	if err != nil {
		e.recordFailure("Settings update rejected", err, map[string]any{"patch": p})
		return settings.Snapshot{}, err
	}

	e.limiter.resize(snap.AISettings.MaxEventsPerHour, e.clock.Now())
	e.record(domain.LevelInfo, "Settings updated", map[string]any{"patch": p})
	e.persistSettings(ctx)
	return snap, nil
}

// ToggleAlgorithm enables or disables an algorithm for new events. Toggling
// to the current state succeeds with changed=false.
func (e *Engine) ToggleAlgorithm(ctx context.Context, name string, enabled bool) (changed bool, err error) {
	data := map[string]any{"algorithm": name, "enabled": enabled}
	if name == "" {
		err := &domain.ValidationError{Field: "algorithm", Reason: "must not be empty"}
		e.recordFailure("Algorithm toggle rejected", err, data)
		return false, err
	}

	changed, _ = e.settings.ToggleAlgorithm(name, enabled)
	data["changed"] = changed

	verb := "disabled"
	if enabled {
		verb = "enabled"
	}
	e.record(domain.LevelInfo, fmt.Sprintf("Algorithm %s %s", name, verb), data)
	if changed {
		e.persistSettings(ctx)
	}
	return changed, nil
}
