package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nvandessel/pneumatic/internal/config"
	"github.com/nvandessel/pneumatic/internal/level"
	"github.com/nvandessel/pneumatic/internal/logging"
	"github.com/nvandessel/pneumatic/internal/store"
)

// session is the state one command works on: config, logger, the save slot
// store and the level set loaded from the configured slot.
type session struct {
	cfg     *config.Config
	logger  *slog.Logger
	trace   *logging.TraceLogger
	slots   store.SlotStore
	scripts []level.Script
	set     *level.Set
}

// loadConfig resolves config from --config, the environment and --slot.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadPath(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if slot, _ := cmd.Flags().GetString("slot"); slot != "" {
		cfg.Store.Slot = slot
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// openStore opens the configured slot store without loading a set.
func openStore(cmd *cobra.Command) (*config.Config, store.SlotStore, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	st, err := store.NewSQLiteSlotStore(cfg.Store.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}
	return cfg, st, nil
}

// openSession loads the configured slot. A slot that does not exist yet
// yields the fresh built-in level set.
func openSession(cmd *cobra.Command) (*session, error) {
	cfg, st, err := openStore(cmd)
	if err != nil {
		return nil, err
	}
	s := &session{
		cfg:    cfg,
		logger: logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr()),
		trace:  cfg.TraceLogger(),
		slots:  st,
	}

	s.scripts, err = level.DefaultScripts()
	if err != nil {
		s.Close()
		return nil, err
	}

	slot, err := st.Load(cmd.Context(), cfg.Store.Slot)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to load slot %s: %w", cfg.Store.Slot, err)
	}
	if slot == nil {
		s.set, err = level.NewSetFromScripts(s.scripts)
	} else {
		s.set, err = level.Load(slot.Doc, s.scripts)
	}
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to build levels for slot %s: %w", cfg.Store.Slot, err)
	}
	s.set.SetLogger(s.logger)
	s.logger.Debug("session opened", "slot", cfg.Store.Slot, "store", cfg.Store.Path, "existing", slot != nil)
	return s, nil
}

// level returns level i of the session's set.
func (s *session) level(i int) (*level.Level, error) {
	return s.set.Level(i)
}

// save writes the set back to the configured slot.
func (s *session) save(ctx context.Context) error {
	if err := s.slots.Save(ctx, s.cfg.Store.Slot, s.set.Save()); err != nil {
		return fmt.Errorf("failed to save slot %s: %w", s.cfg.Store.Slot, err)
	}
	return nil
}

// commit propagates edits to level i into the levels that embed it and
// saves the slot.
func (s *session) commit(ctx context.Context, i int) error {
	s.set.Propagate(i)
	return s.save(ctx)
}

func (s *session) Close() {
	s.trace.Close()
	if s.slots != nil {
		s.slots.Close()
	}
}
