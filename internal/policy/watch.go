package policy

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Watch reloads the policy file into store whenever it changes on disk.
// Blocks until ctx is done. A reload that fails to parse keeps the
// previous policy active.
func Watch(ctx context.Context, path string, store *Store) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// Watch the directory: editors typically replace the file, which
	// drops a watch placed on the file itself.
	if err := w.Add(filepath.Dir(path)); err != nil {
		return err
	}
	target := filepath.Clean(path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			p, err := Load(path)
			if err != nil {
				log.Warn().Err(err).Str("path", path).Msg("policy reload failed, keeping previous")
				continue
			}
			store.Replace(p)
			log.Info().Str("path", path).Msg("policy reloaded")
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("policy watcher error")
		}
	}
}
