package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/kpenrose/finscope/pkg/logx"
	"github.com/kpenrose/finscope/pkg/models"
)

// processedDir is the subdirectory handled feedback files are moved into.
const processedDir = "processed"

// FeedbackWatcher turns files dropped into a directory into step feedback.
// Each *.json file holds one models.HumanFeedback. Files should be dropped
// atomically (written elsewhere, then renamed in); a file that cannot be
// parsed or applied is archived with a .rejected suffix instead of being
// retried forever.
type FeedbackWatcher struct {
	dir       string
	poll      time.Duration
	approvals *ApprovalManager
	log       zerolog.Logger
}

// NewFeedbackWatcher creates a watcher over dir, creating it and its
// processed/ subdirectory as needed.
func NewFeedbackWatcher(dir string, poll time.Duration, approvals *ApprovalManager) (*FeedbackWatcher, error) {
	if dir == "" {
		return nil, errors.New("feedback watcher requires a directory")
	}
	if approvals == nil {
		return nil, errors.New("feedback watcher requires an approval manager")
	}
	if err := os.MkdirAll(filepath.Join(dir, processedDir), 0o755); err != nil {
		return nil, fmt.Errorf("create watch dir: %w", err)
	}
	if poll <= 0 {
		poll = 2 * time.Second
	}
	return &FeedbackWatcher{
		dir:       dir,
		poll:      poll,
		approvals: approvals,
		log:       logx.Component("watcher"),
	}, nil
}

// Run processes dropped feedback until the context ends. An fsnotify watch
// picks up new files immediately; the polling sweep catches anything the
// watch missed and is the sole mechanism when the watch cannot start.
func (w *FeedbackWatcher) Run(ctx context.Context) error {
	var events <-chan fsnotify.Event
	var watchErrs <-chan error

	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		if addErr := watcher.Add(w.dir); addErr == nil {
			events = watcher.Events
			watchErrs = watcher.Errors
			defer watcher.Close()
		} else {
			watcher.Close()
			watcher = nil
		}
	}
	if events == nil {
		w.log.Warn().Str("dir", w.dir).Msg("fsnotify unavailable, relying on polling")
	}

	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()

	// Pick up anything dropped before the run started.
	w.sweep()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if ev.Op&fsnotify.Create != 0 || ev.Op&fsnotify.Write != 0 {
				w.sweep()
			}
		case _, ok := <-watchErrs:
			if !ok {
				watchErrs = nil
			}
		case <-ticker.C:
			w.sweep()
		}
	}
}

// sweep processes every feedback file currently in the directory.
func (w *FeedbackWatcher) sweep() {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.log.Warn().Err(err).Str("dir", w.dir).Msg("reading watch dir")
		return
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		w.process(filepath.Join(w.dir, e.Name()))
	}
}

func (w *FeedbackWatcher) process(path string) {
	raw, err := os.ReadFile(path)
	if err != nil {
		w.log.Warn().Err(err).Str("file", path).Msg("reading feedback file")
		return
	}
	var fb models.HumanFeedback
	if err := json.Unmarshal(raw, &fb); err != nil {
		w.log.Warn().Err(err).Str("file", path).Msg("malformed feedback file")
		w.archive(path, ".rejected")
		return
	}
	st, err := w.approvals.Submit(fb)
	if err != nil {
		w.log.Warn().Err(err).Str("file", path).Msg("feedback not applied")
		w.archive(path, ".rejected")
		return
	}
	w.log.Info().
		Str("step_id", st.ID).
		Bool("approved", fb.Approved).
		Str("file", filepath.Base(path)).
		Msg("feedback file applied")
	w.archive(path, "")
}

// archive moves a handled file into processed/ so it is not picked up again.
func (w *FeedbackWatcher) archive(path, suffix string) {
	dest := filepath.Join(w.dir, processedDir, filepath.Base(path)+suffix)
	if err := os.Rename(path, dest); err != nil {
		w.log.Warn().Err(err).Str("file", path).Msg("archiving feedback file")
		// Remove it outright rather than reprocessing it every sweep.
		os.Remove(path)
	}
}
