package search

import (
	"context"
	"log/slog"
	"time"
)

// GenerationName builds a timestamp-named index generation, sortable by
// recency through plain lexical comparison.
func GenerationName(prefix string, t time.Time) string {
	return prefix + "_" + t.Format("2006_01_02_15_04_05")
}

// Lifecycle drives one index generation through its run:
// create, populate, swap or abort, clean up.
type Lifecycle struct {
	client *Client
	log    *slog.Logger

	Alias       string
	Prefix      string
	MappingPath string
	Keep        int
	now         func() time.Time
}

// NewLifecycle returns a lifecycle manager for the given alias and naming
// prefix, retaining keep historical generations next to the current one.
func NewLifecycle(client *Client, log *slog.Logger, alias, prefix, mappingPath string, keep int) *Lifecycle {
	return &Lifecycle{
		client:      client,
		log:         log,
		Alias:       alias,
		Prefix:      prefix,
		MappingPath: mappingPath,
		Keep:        keep,
		now:         time.Now,
	}
}

// Begin creates a fresh, not-yet-aliased generation from the mapping file
// and returns its name. Population happens entirely inside this private
// namespace, so readers never observe a half-built index.
func (l *Lifecycle) Begin(ctx context.Context) (string, error) {
	mapping, err := LoadMapping(l.MappingPath)
	if err != nil {
		return "", err
	}

	name := GenerationName(l.Prefix, l.now())
	if err := l.client.CreateIndex(ctx, name, mapping); err != nil {
		return "", err
	}

	l.log.Info("index generation created", slog.String("index", name))
	return name, nil
}

// Commit atomically points the alias at the populated generation.
func (l *Lifecycle) Commit(ctx context.Context, generation string) error {
	if err := l.client.SwapAlias(ctx, l.Alias, generation); err != nil {
		return err
	}
	l.log.Info("alias switched", slog.String("alias", l.Alias), slog.String("index", generation))
	return nil
}

// Abort deletes a partially populated generation after a fatal error. The
// previously aliased generation stays live and untouched, so a failed
// rebuild never disrupts readers. Best-effort.
func (l *Lifecycle) Abort(ctx context.Context, generation string) {
	if generation == "" {
		return
	}
	if err := l.client.DeleteIndex(ctx, generation); err != nil {
		l.log.Warn("failed to delete aborted generation", slog.String("index", generation), slog.Any("err", err))
		return
	}
	l.log.Info("aborted generation deleted", slog.String("index", generation))
}

// Cleanup enforces the retention window: of all generations matching the
// naming prefix, the newest Keep+1 survive and the rest are deleted.
// Individual deletion failures are warnings; retention is eventually
// consistent rather than guaranteed per run.
func (l *Lifecycle) Cleanup(ctx context.Context) int {
	names, err := l.client.ListIndices(ctx, l.Prefix+"_*")
	if err != nil {
		l.log.Warn("list generations for cleanup", slog.Any("err", err))
		return 0
	}

	aliased, err := l.client.AliasIndices(ctx, l.Alias)
	if err != nil {
		l.log.Warn("resolve alias target for cleanup", slog.Any("err", err))
		return 0
	}
	live := make(map[string]struct{}, len(aliased))
	for _, name := range aliased {
		live[name] = struct{}{}
	}

	deleted := 0
	for _, name := range Expired(names, l.Keep) {
		// The alias target is never deleted, however old its name is.
		if _, ok := live[name]; ok {
			continue
		}
		if err := l.client.DeleteIndex(ctx, name); err != nil {
			l.log.Warn("failed to delete old generation", slog.String("index", name), slog.Any("err", err))
			continue
		}
		l.log.Info("old generation deleted", slog.String("index", name))
		deleted++
	}
	return deleted
}

// Expired returns the generation names beyond the retention window. Names
// must be sorted newest first; the newest keep+1 are retained.
func Expired(sortedDesc []string, keep int) []string {
	if keep < 0 {
		keep = 0
	}
	retain := keep + 1
	if len(sortedDesc) <= retain {
		return nil
	}
	return sortedDesc[retain:]
}
