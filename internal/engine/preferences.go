package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/untoldecay/InstructionLog/internal/storage"
	"github.com/untoldecay/InstructionLog/internal/types"
)

// GetVerbosityPreference resolves the verbosity for user, trying the
// per-instruction key for name, then the global key, then the default.
// Stored values that are no longer valid are skipped.
func (e *Engine) GetVerbosityPreference(ctx context.Context, userID, name string) (pref *types.VerbosityPreference, err error) {
	defer func(start time.Time) { observe("get_verbosity", start, err) }(time.Now())

	keys := []string{types.VerbosityKey("")}
	if name != "" {
		keys = []string{types.VerbosityKey(name), types.VerbosityKey("")}
	}
	for _, key := range keys {
		value, err := e.store.GetPreference(ctx, userID, key)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		v := types.Verbosity(value)
		if !v.IsValid() {
			e.logger.Warn("ignoring invalid verbosity preference", "user", userID, "key", key, "value", value)
			continue
		}
		return &types.VerbosityPreference{UserID: userID, Name: name, Verbosity: v, Source: key}, nil
	}
	return &types.VerbosityPreference{
		UserID:    userID,
		Name:      name,
		Verbosity: types.DefaultVerbosity,
		Source:    "default",
	}, nil
}

// SetVerbosityPreference stores the verbosity for user, globally when name
// is empty.
func (e *Engine) SetVerbosityPreference(ctx context.Context, userID, name string, verbosity types.Verbosity) (err error) {
	defer func(start time.Time) { observe("set_verbosity", start, err) }(time.Now())

	if userID == "" {
		return fmt.Errorf("%w: user id is required", storage.ErrInvalidArgument)
	}
	pref := &types.VerbosityPreference{UserID: userID, Name: name, Verbosity: verbosity}
	if err := pref.Validate(); err != nil {
		return invalidArgument(err)
	}
	if name != "" {
		if err := types.ValidateName(name); err != nil {
			return invalidArgument(err)
		}
	}
	return e.store.SetPreference(ctx, userID, types.VerbosityKey(name), string(verbosity))
}

// InstructionsForConfidence returns the live, active instructions mapped to
// level in mapping order. Names that no longer resolve are skipped.
func (e *Engine) InstructionsForConfidence(ctx context.Context, level string) (out []*types.InstructionSet, err error) {
	defer func(start time.Time) { observe("confidence", start, err) }(time.Now())

	mapping, err := e.store.GetConfidenceMapping(ctx, level)
	if err != nil {
		return nil, err
	}
	for _, name := range mapping.Instructions {
		inst, err := e.Get(ctx, name)
		if errors.Is(err, storage.ErrNotFound) {
			e.logger.Debug("confidence mapping references missing instruction", "level", level, "name", name)
			continue
		}
		if err != nil {
			return nil, err
		}
		if !inst.Active {
			continue
		}
		out = append(out, inst)
	}
	return out, nil
}

// SetConfidenceMapping replaces the instruction list for level.
func (e *Engine) SetConfidenceMapping(ctx context.Context, level string, names []string) (err error) {
	defer func(start time.Time) { observe("set_confidence", start, err) }(time.Now())

	for _, name := range names {
		if err := types.ValidateName(name); err != nil {
			return invalidArgument(err)
		}
	}
	return e.store.SetConfidenceMapping(ctx, &types.ConfidenceMapping{ConfidenceLevel: level, Instructions: names})
}

// ListConfidenceMappings returns every mapping.
func (e *Engine) ListConfidenceMappings(ctx context.Context) ([]*types.ConfidenceMapping, error) {
	return e.store.ListConfidenceMappings(ctx)
}
